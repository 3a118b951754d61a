// Package client is a typed Go client for the audit log HTTP API.
//
//	c, err := client.New("http://localhost:8080")
//	resp, err := c.LogEvent(ctx, audit.LogRequest{EventType: "LOGIN", UserID: "user1"})
//	events, err := c.GetEvents(ctx, audit.EventQuery{SortOrder: "asc"})
//
// Non-2xx responses are returned as *APIError carrying the server's message.
package client
