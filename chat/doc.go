// Package chat reads the historical chat replay of a finished broadcast.
//
// ReplayClient.Open fetches the public watch page for a video, pulls the
// embedded innertube API key, client version, and the initial replay
// continuation out of it, and returns a Replay session. The session pages
// through /youtubei/v1/live_chat/get_live_chat_replay until the feed stops
// handing out continuations, yielding normalized Items (text messages,
// super chats, super stickers, membership events).
//
// No credentials are required: the replay endpoint is the same one the
// public watch page uses. Replay availability lags the end of a broadcast,
// sometimes by hours; a video whose replay is not yet published yields zero
// items, which callers must treat as "retry later", not "no chat".
package chat
