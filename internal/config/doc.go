// Package config provides dockenv's user configuration.
//
// Settings come from built-in defaults, an optional config file and
// DOCKENV_* environment variables, in increasing order of precedence.
// The file is looked up as config.{yaml,yml,json,toml} under
// $XDG_CONFIG_HOME/dockenv and $HOME/.config/dockenv, or given
// explicitly with --config. An explicit file may also be JSON with
// comments (.jsonc).
//
// Usage:
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Image.Base)
package config
