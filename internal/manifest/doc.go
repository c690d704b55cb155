// Package manifest loads environment definition files for `dockenv new -f`.
//
// A manifest describes what an environment is built from, so the same
// environment can be recreated on another machine:
//
//	# scraper.yaml
//	base: python:3.12-slim
//	requirements: requirements.txt
//	packages:
//	  - requests
//	  - lxml
//	onlyBinary: true
//
// YAML files (.yaml, .yml) are parsed with gopkg.in/yaml.v3. Anything else
// is treated as JSON with comments and parsed after stripping comments and
// trailing commas with github.com/tidwall/jsonc.
package manifest
