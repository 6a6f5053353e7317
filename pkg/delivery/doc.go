// Package delivery fans outbound messages out to live connections.
//
// A message is encoded once and handed to every target connection's
// sender. Delivery is best effort: a failed write to one connection is
// logged and counted and never stops delivery to the others, and callers
// only learn how many connections accepted the frame.
package delivery
