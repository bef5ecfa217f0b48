// Package prompts embeds the agent instruction files and exports them as strings.
package prompts

import _ "embed"

//go:embed endpoint.txt
var Endpoint string

//go:embed drivers.txt
var Drivers string
