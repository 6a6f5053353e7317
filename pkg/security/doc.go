// Package security groups the authentication packages used by Pulse.
//
// # Bearer Tokens
//
// Clients present an HS256-signed token issued by the account service.
// The auth subpackage verifies it on POST /v1/chat and on the WebSocket
// handshake:
//
//	verifier, err := auth.NewVerifier(auth.VerifierOptionsFromConfig(cfg.Auth))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	mw := auth.NewMiddleware(verifier, auth.DefaultSources(""), onError, logger)
//	mux.Handle("POST /v1/chat", mw.Handle(chatHandler))
package security
