package config

import (
	"fmt"
	"os"
)

const defaultConfigTemplate = `# nbpublish configuration
source_dir: ./notebooks
script_dir: ./julia
markdown_dir: ./markdown
snippets_dir: ./codesnippets

# Destinations are sibling repositories; docs_dest can also be set via
# NBPUBLISH_DOCS_DEST.
docs_dest: ../QuantumOptics.jl-documentation/src/examples
website_dest: ../QuantumOptics.jl-website/src/_codesnippets/src

kernel: julia-1.11
cell_timeout: 200
overwrite: true
template: markdown_custom

logging:
  level: info
  format: text

state:
  path: .nbpublish/state.db

daemon:
  listen: ":9180"
  debounce: 2s
  # rebuild_interval: 1h

events:
  enabled: false
  nats_url: nats://127.0.0.1:4222
  subject: nbpublish.builds
`

// Init writes a default configuration file. Existing files are only
// replaced when force is set.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
	}
	if err := os.WriteFile(path, []byte(defaultConfigTemplate), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
