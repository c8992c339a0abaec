package cli

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/portside/portside/internal/api"
	"github.com/portside/portside/internal/config"
	"github.com/portside/portside/internal/inspect"
	"github.com/portside/portside/internal/logmux"
	"github.com/portside/portside/internal/metrics"
	"github.com/portside/portside/internal/portprobe"
	"github.com/portside/portside/internal/proctree"
	"github.com/portside/portside/internal/project"
	"github.com/portside/portside/internal/supervise"
)

// supervisor owns the launcher, the event fan-in and the process
// registry. It is the single backend all control surfaces share.
type supervisor struct {
	cfg      *config.Config
	host     inspect.Host
	launcher *supervise.Launcher
	source   chan supervise.Event
	mux      *logmux.Mux
	reaper   *proctree.Reaper
	prober   *portprobe.Prober
	versions *project.Versions
	stream   *eventStream

	mu     sync.Mutex
	procs  map[string]*api.ProcessReport
	exited map[string]struct{}

	pumpDone chan struct{}
	shutOnce sync.Once
}

func newSupervisor(cfg *config.Config) *supervisor {
	host := inspect.NewExecHost()
	return newSupervisorWithHost(cfg, host)
}

// newSupervisorWithHost lets tests substitute a fake process host.
func newSupervisorWithHost(cfg *config.Config, host inspect.Host) *supervisor {
	buffer := cfg.Events.Buffer
	if buffer <= 0 {
		buffer = 1
	}
	source := make(chan supervise.Event, buffer)
	mux := logmux.New(buffer)
	mux.Add(source)

	s := &supervisor{
		cfg:      cfg,
		host:     host,
		launcher: supervise.NewLauncher(source),
		source:   source,
		mux:      mux,
		reaper:   proctree.NewReaper(host, cfg.Supervise.KillDepth, cfg.Supervise.Grace),
		prober:   portprobe.NewProber(host, cfg.Supervise.ProbeDepth, cfg.Supervise.WellKnownPorts),
		versions: project.NewVersions(),
		stream:   newEventStream(buffer),
		procs:    make(map[string]*api.ProcessReport),
		exited:   make(map[string]struct{}),
		pumpDone: make(chan struct{}),
	}
	go s.pump()
	return s
}

// pump drains the mux, keeps the registry current and fans events out to
// subscribers. It ends when the mux output closes.
func (s *supervisor) pump() {
	defer close(s.pumpDone)
	for evt := range s.mux.Output() {
		s.apply(evt)
		s.stream.Publish(evt)
	}
	s.stream.Close()
}

func (s *supervisor) apply(evt supervise.Event) {
	switch evt.Type {
	case supervise.EventExited, supervise.EventWaitFailed:
		s.mu.Lock()
		if p, ok := s.procs[evt.Token]; ok {
			p.Running = false
		} else {
			// Exit observed before spawn finished registering.
			s.exited[evt.Token] = struct{}{}
		}
		s.mu.Unlock()
		if evt.Err != nil {
			logrus.WithFields(logrus.Fields{
				"token": evt.Token,
				"pid":   evt.PID,
			}).Warnf("wait failed: %v", evt.Err)
		}
	case supervise.EventShellFallback:
		metrics.RecordShellFallback()
		logrus.WithFields(logrus.Fields{
			"token":     evt.Token,
			"preferred": evt.Preferred,
			"shell":     evt.Shell,
		}).Warn("preferred shell unavailable, fell back")
	}
}

// spawn validates and launches a process, registering it for status
// reporting. The returned token correlates subsequent events.
func (s *supervisor) spawn(req supervise.Request) (*api.SpawnResult, error) {
	if req.Token == "" {
		req.Token = uuid.NewString()
	}
	if len(req.Env) == 0 {
		req.Env = s.cfg.SpawnEnv
	}

	pid, err := s.launcher.Spawn(req)
	if err != nil {
		if isRejection(err) {
			metrics.RecordSpawn(metrics.OutcomeRejected)
		} else {
			metrics.RecordSpawn(metrics.OutcomeFailed)
		}
		return nil, err
	}
	metrics.RecordSpawn(metrics.OutcomeOK)

	report := &api.ProcessReport{
		Token:     req.Token,
		PID:       pid,
		Command:   req.Command,
		Dir:       req.Dir,
		StartedAt: time.Now(),
		Running:   true,
	}
	s.mu.Lock()
	if _, done := s.exited[req.Token]; done {
		delete(s.exited, req.Token)
		report.Running = false
	}
	s.procs[req.Token] = report
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"token":   req.Token,
		"pid":     pid,
		"command": req.Command,
		"dir":     req.Dir,
	}).Info("spawned")

	return &api.SpawnResult{PID: pid, Token: req.Token}, nil
}

func (s *supervisor) killTree(pid int) error {
	err := s.reaper.KillTree(pid)
	switch {
	case err == nil:
		metrics.RecordKillTree(metrics.OutcomeOK)
		s.markDead(pid)
	case isNotFound(err):
		metrics.RecordKillTree(metrics.OutcomeNotFound)
	default:
		metrics.RecordKillTree(metrics.OutcomeFailed)
	}
	return err
}

// markDead flips registry entries whose root pid was just reaped. The
// exit event may never arrive when the waiter belongs to another
// supervisor instance.
func (s *supervisor) markDead(pid int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.procs {
		if p.PID == pid {
			p.Running = false
		}
	}
}

func (s *supervisor) findPort(pid int) (*api.PortResult, error) {
	port, err := s.prober.FindPort(pid)
	switch {
	case err != nil:
		metrics.RecordPortProbe(metrics.ProbeErr)
		return nil, err
	case port == 0:
		metrics.RecordPortProbe(metrics.ProbeMiss)
	default:
		metrics.RecordPortProbe(metrics.ProbeHit)
		s.mu.Lock()
		for _, p := range s.procs {
			if p.PID == pid {
				p.Port = port
			}
		}
		s.mu.Unlock()
	}
	return &api.PortResult{PID: pid, Port: port}, nil
}

// projects scans every configured workspace. With no workspaces
// configured the current directory is scanned.
func (s *supervisor) projects() ([]project.Project, error) {
	roots := s.cfg.Workspaces
	if len(roots) == 0 {
		roots = []string{"."}
	}
	var all []project.Project
	for _, root := range roots {
		found, err := project.Scan(root, s.versions)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", root, err)
		}
		all = append(all, found...)
	}
	return all, nil
}

func (s *supervisor) status() *api.StatusReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	procs := make(map[string]api.ProcessReport, len(s.procs))
	for token, p := range s.procs {
		procs[token] = *p
	}
	return &api.StatusReport{
		Version:     version,
		GeneratedAt: time.Now(),
		Processes:   procs,
	}
}

func (s *supervisor) subscribe(buffer int) (<-chan supervise.Event, func()) {
	return s.stream.Subscribe(buffer)
}

// shutdown reaps every process still registered as running, then tears
// down the event pipeline in producer-to-consumer order.
func (s *supervisor) shutdown() {
	s.shutOnce.Do(func() {
		s.mu.Lock()
		var running []int
		for _, p := range s.procs {
			if p.Running {
				running = append(running, p.PID)
			}
		}
		s.mu.Unlock()

		for _, pid := range running {
			if err := s.killTree(pid); err != nil && !isNotFound(err) {
				logrus.Warnf("reap pid %d on shutdown: %v", pid, err)
			}
		}

		s.launcher.Close()
		s.launcher.Wait()
		close(s.source)
		s.mux.Close()
		<-s.pumpDone
	})
}
