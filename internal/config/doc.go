// Package config provides configuration parsing for Waypoint projects.
//
// The configuration is stored in waypoint.json at the project root.
// This package handles loading, saving, and validating configuration.
//
// # Configuration File Structure
//
//	{
//	  "manifest": "routes.yaml",
//	  "serve": {
//	    "host": "localhost",
//	    "port": 4000
//	  },
//	  "metrics": {
//	    "enabled": true,
//	    "namespace": "waypoint"
//	  },
//	  "tracing": {
//	    "enabled": false,
//	    "tracerName": "waypoint"
//	  },
//	  "log": {
//	    "level": "info"
//	  },
//	  "s3": {
//	    "region": "eu-west-1",
//	    "endpoint": "http://localhost:9000"
//	  },
//	  "maxRedirects": 10
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Manifest:", cfg.ManifestPath())
package config
