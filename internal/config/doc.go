// Package config provides configuration parsing for cells deployments.
//
// The configuration is stored in cells.json. A missing file is not an error:
// Load returns the defaults, and command-line flags override either.
//
// # Configuration File Structure
//
//	{
//	  "sheet": "budget.yaml",
//	  "debug": false,
//	  "server": {
//	    "addr": ":8080",
//	    "metricsPath": "/metrics",
//	    "watchBuffer": 64,
//	    "shutdownTimeout": "5s"
//	  },
//	  "metrics": {
//	    "enabled": true,
//	    "namespace": "cells"
//	  },
//	  "tracing": {
//	    "enabled": false,
//	    "tracerName": "cells"
//	  },
//	  "log": {
//	    "level": "info",
//	    "format": "text"
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Listening on", cfg.Server.Addr)
package config
