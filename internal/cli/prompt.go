package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// PromptLine writes label (and the default, if any) to out and reads one
// line from in. An empty answer returns def. Successive prompts must share
// one reader so buffered input carries over.
func PromptLine(in *bufio.Reader, out io.Writer, label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(out, "%s: ", label)
	}

	input, err := in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return def, nil
	}
	return input, nil
}
