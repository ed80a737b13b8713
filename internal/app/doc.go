// Package app wires the playlist dashboard together and manages its
// lifecycle.
//
// # Initialization Flow
//
//	1. Load configuration from environment and an optional YAML file
//	2. Initialize logging and OpenTelemetry
//	3. Create the dataset cache, pipeline and dashboard service
//	4. Create the websocket hub, authenticator and session manager
//	5. Build the chi router and the HTTP server
//
// # Usage
//
//	application, err := app.NewApplication(nil)
//	if err != nil {
//	    return err
//	}
//	return application.Run(ctx)
//
// Run returns after SIGINT, SIGTERM or cancellation of ctx, once the server
// has drained, the websocket hub has stopped and telemetry has been flushed.
// The package never calls os.Exit.
package app
