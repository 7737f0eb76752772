package neverbounce

// Version is the library version reported in the User-Agent header.
const Version = "0.3.0"

// UserAgent is sent on every request unless Config.UserAgent overrides it.
const UserAgent = "NeverBounceApi-Go/" + Version
