package schema

import _ "embed"

// PortsideV1Schema contains the JSON schema for portside manifests.
//
//go:embed portside.v1.json
var PortsideV1Schema []byte
