package app

import "time"

// Channel is a read-only snapshot of a workspace channel, taken at listing
// time. The run never mutates it.
type Channel struct {
	ID         string
	Name       string
	Created    time.Time
	Archived   bool
	NumMembers int
	IsMember   bool
}

// User carries the directory fields needed to resolve an email domain.
type User struct {
	ID      string
	Name    string
	Email   string
	Deleted bool
	IsBot   bool
}

// Message is one channel message. Only the timestamp drives any decision;
// a zero timestamp means the service did not provide a usable one.
type Message struct {
	User      string
	SubType   string
	Timestamp time.Time
}
