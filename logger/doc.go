// Package logger provides structured logging for lima client sessions
// using zerolog.
//
// # Configuration
//
//	logging:
//	  level: "debug"
//	  format: "json"
//
// # Usage
//
//	log := logger.New(&cfg, "petstore").WithComponent("lima.client")
//	log.Info("call finished", logger.Fields("endpoint", "getPet", "status", 200))
package logger
