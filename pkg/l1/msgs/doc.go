// Package msgs provides L1 protocol support and all message schemas.
package msgs

// L1 protocol carries register requests to a bridged board over a
// message broker, and replies back.
//
// Producer: L2 client (RegisterRequest), bridge (RegisterReply)
// Consumer: bridge (RegisterRequest), L2 client (RegisterReply)
//
// Messages are proto3 encoded with the field numbers in their struct tags.
// The tags are the schema, there is no .proto file to regenerate from.
