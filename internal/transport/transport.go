package transport

// Transport is the chat transport abstraction used by the bot engine.
// It delivers inbound commands and button clicks as discrete updates and
// carries outbound text, menus and images.
type Transport interface {
	GetUpdates(offset int64, timeout int) ([]Update, error)
	SendMessage(chatID int64, text string) error
	SendMenu(chatID int64, text string, menu [][]Button) error
	EditMessage(chatID, messageID int64, text string, menu [][]Button) error
	SendPhoto(chatID int64, caption string, png []byte) error
}

// Update represents one incoming event: either a text message (commands)
// or a button click.
type Update struct {
	UpdateID int64     `json:"update_id"`
	Message  *Message  `json:"message,omitempty"`
	Callback *Callback `json:"callback,omitempty"`
}

// Message represents an inbound text message.
type Message struct {
	MessageID int64   `json:"message_id,omitempty"`
	Chat      Chat    `json:"chat"`
	Text      *string `json:"text,omitempty"`
	Date      int64   `json:"date"`
}

// Callback is a button click. Data is the opaque token the bot attached
// to the button; Message is the menu message the button belonged to.
type Callback struct {
	Data    string   `json:"data"`
	Message *Message `json:"message,omitempty"`
}

// Chat identifies a conversation. The bot serves private chats, so the
// chat id doubles as the user key.
type Chat struct {
	ID int64 `json:"id"`
}

// Button is one inline menu choice: a visible label and the callback
// token delivered back when clicked.
type Button struct {
	Label string `json:"text"`
	Data  string `json:"callback_data"`
}

// Row builds a single menu row.
func Row(buttons ...Button) []Button { return buttons }
