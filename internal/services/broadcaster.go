package services

// Broadcaster fans out protocol events. It is a dumb multicast/unicast
// layer; callers decide what is private and what is public before
// invoking it. Implementations must deliver each payload whole: two
// settlements emitting concurrently may interleave events, never the
// bytes of one event.
type Broadcaster interface {
	EmitToAll(event string, payload any)
	EmitToUser(username, event string, payload any)
}
