package discord

// Payload is the body of a Discord webhook execution.
type Payload struct {
	Embeds []Embed `json:"embeds"`
}

type Embed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	// Timestamp is RFC 3339; Discord renders it in the embed footer.
	Timestamp string `json:"timestamp,omitempty"`
	Color     int    `json:"color"`
	Image     *Image `json:"image,omitempty"`
}

type Image struct {
	URL string `json:"url"`
}
