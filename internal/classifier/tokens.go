package classifier

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// DefaultTokenModel is the model whose tokenizer gates semantic classification.
const DefaultTokenModel = "gpt-3.5-turbo"

// TokenCounter estimates the sub-word length of a message.
type TokenCounter interface {
	Count(message string) int
}

var loaderOnce sync.Once

// TiktokenCounter counts tokens with the BPE encoding of a chat model.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter loads the encoding for model. Ranks come from the
// embedded offline loader, so counting never touches the network.
func NewTiktokenCounter(model string) (*TiktokenCounter, error) {
	if model == "" {
		model = DefaultTokenModel
	}
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, fmt.Errorf("load encoding for %s: %w", model, err)
	}
	return &TiktokenCounter{enc: enc}, nil
}

// Count returns the number of tokens in message. Special-token text is
// counted like any other input.
func (c *TiktokenCounter) Count(message string) int {
	if message == "" {
		return 0
	}
	return len(c.enc.Encode(message, nil, nil))
}
