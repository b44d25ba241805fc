// Package discord connects the relay and leveling engines to a Discord
// guild through bwmarrin/discordgo.
//
// Transient bindings are webhooks: one is created on the top-level channel
// for every relay, used once and deleted. Threads and forum posts cannot
// own webhooks, so relays into them provision on the parent channel and
// address the thread on execute.
//
// Router implements the prefix text commands (!createproxy, !proxysay, ...)
// on top of a Message abstraction so it can be tested without a gateway.
package discord
