// Package chat manages the conversations of a single chat session.
//
// A Store holds every conversation in the session, which one is active, and
// a busy flag that is set while an assistant reply is being generated:
//
//	store, err := chat.New(ctx, repo, responder, logger)
//	p, err := store.Submit(ctx, "what is rust")
//	reply, err := p.Wait(ctx)
//
// Submitting a message is a two-phase operation. The user message is stored
// synchronously, so readers see it immediately. The reply is generated on
// another goroutine and applied to the originating conversation when it
// arrives, whichever conversation is active by then. If generation fails,
// a fixed apology is stored instead. Either way the busy flag is cleared in
// the same step.
//
// The first successful reply in a conversation renames it after the user's
// opening message, truncated to 50 characters.
package chat
