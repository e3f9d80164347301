//go:build !prod

package keyhist

import "embed"

// Dev builds serve no page; the figure and metadata endpoints still work.
var webuiFiles embed.FS

func openBrowser(url string) error {
	return nil
}
