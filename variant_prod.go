//go:build prod

package keyhist

import (
	"embed"
	"os/exec"
	"runtime"
)

//go:embed webui
var webuiFiles embed.FS

// Points the desktop's default browser at url. Only the launcher is waited
// for, not the browser.
func openBrowser(url string) error {
	name, args := "xdg-open", []string{url}

	switch runtime.GOOS {
	case "windows":
		name, args = "rundll32", []string{"url.dll,FileProtocolHandler", url}
	case "darwin":
		name = "open"
	}

	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()

	return nil
}
