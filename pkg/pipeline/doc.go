// Package pipeline is the single admission → dispatch path shared by the
// HTTP and real-time transports.
//
// Service.Chat checks the user's admission budget, bounds how many
// dispatches run at once, builds the context from the user's recent
// history and asks the orchestrator for an answer. Successful exchanges
// are appended to the user's history. A rejected request returns
// *ratelimit.RejectedError; every other outcome, including an exhausted
// fallback chain, is a Reply.
package pipeline
