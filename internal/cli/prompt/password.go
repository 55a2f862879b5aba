package prompt

import (
	"encoding/hex"
	"fmt"

	"github.com/manifoldco/promptui"
)

// Password prompts for a masked secret input.
func Password(label string) (string, error) {
	prompt := promptui.Prompt{
		Label: label,
		Mask:  '*',
	}

	result, err := prompt.Run()
	return result, wrapError(err)
}

// SecretHex prompts for a masked hex-encoded secret (a ticket role secret),
// rejecting input that is not valid hex.
func SecretHex(label string) (string, error) {
	prompt := promptui.Prompt{
		Label: label,
		Mask:  '*',
		Validate: func(input string) error {
			if input == "" {
				return fmt.Errorf("secret must not be empty")
			}
			if _, err := hex.DecodeString(input); err != nil {
				return fmt.Errorf("secret must be hex-encoded")
			}
			return nil
		},
	}

	result, err := prompt.Run()
	return result, wrapError(err)
}
