// Pulse is the relay core of a real-time coaching chat service.
//
// It accepts chat messages over HTTP and WebSocket, admits them against a
// shared sliding-window rate limit, answers them through an ordered chain
// of language-model backends and fans the answer out to every live
// connection of the user.
//
// Usage:
//
//	# Start the server
//	pulse run --config config.yaml
//
//	# Check a configuration file
//	pulse validate --config config.yaml
//
//	# Show the last persisted backend health
//	pulse backends --format json
//
//	# Sign a development token
//	pulse token --user alice
//
//	# Show version information
//	pulse version
package main

func main() {
	Execute()
}
