package pipeline

import (
	"os"
	"path/filepath"
	"strings"
)

// maxTextBytes caps how much of a text document is handed to the
// extractor.
const maxTextBytes = 256 * 1024

// documentText returns the text payload used for extraction. Plain
// text files are read directly. Binary formats carry no embedded text
// reader here, so the file name stem is used as a last-resort signal
// for the extractor (scans are usually named after their content).
func documentText(path string) string {
	if strings.ToLower(filepath.Ext(path)) == ".txt" {
		data, err := os.ReadFile(path)
		if err == nil {
			if len(data) > maxTextBytes {
				data = data[:maxTextBytes]
			}
			text := strings.TrimSpace(string(data))
			if text != "" {
				return text
			}
		}
	}
	return stemAsText(path)
}

func stemAsText(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	replacer := strings.NewReplacer("_", " ", "-", " ", ".", " ")
	return strings.TrimSpace(replacer.Replace(stem))
}
