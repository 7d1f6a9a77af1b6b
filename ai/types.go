package ai

// message is one entry of the chat-completion request body.
type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the body POSTed to <endpoint>/chat. Responses are awaited
// whole; streaming is always off.
type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// chatResponse is the successful reply shape.
type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Error string `json:"error,omitempty"`
}

// tagsResponse is the reply of GET <endpoint>/tags.
type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// imageRequest is the text-to-image body.
type imageRequest struct {
	TextPrompts []textPrompt `json:"text_prompts"`
	CfgScale    int          `json:"cfg_scale"`
	Height      int          `json:"height"`
	Width       int          `json:"width"`
	Samples     int          `json:"samples"`
	Steps       int          `json:"steps"`
}

type textPrompt struct {
	Text   string  `json:"text"`
	Weight float64 `json:"weight"`
}

// imageResponse carries the base64-encoded generation artifacts.
type imageResponse struct {
	Artifacts []struct {
		Base64 string `json:"base64"`
	} `json:"artifacts"`
	Message string `json:"message,omitempty"`
}
