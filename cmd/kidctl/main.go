// Package main provides the kidctl CLI for poking a running kidreel
// dev server.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
)

var (
	app    = kingpin.New("kidctl", "kidreel dev server client for testing")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").String()

	// videos command
	videosCmd = app.Command("videos", "List the video feed")

	// play command
	playCmd     = app.Command("play", "Play a video (or toggle pause when it is playing)")
	playVideoID = playCmd.Arg("video-id", "Video ID").Required().String()

	// pause command
	pauseCmd = app.Command("pause", "Toggle pause on the playing video")

	// retry command
	retryCmd     = app.Command("retry", "Retry an errored video")
	retryVideoID = retryCmd.Arg("video-id", "Video ID").Required().String()

	// state command
	stateCmd = app.Command("state", "Show the playback state")

	// select command
	selectCmd     = app.Command("select", "Toggle a video's selection")
	selectVideoID = selectCmd.Arg("video-id", "Video ID").Required().String()

	// settings commands
	settingsCmd   = app.Command("settings", "Show the parental settings")
	setPinCmd     = app.Command("set-pin", "Set the parental PIN")
	setPinValue   = setPinCmd.Arg("pin", "PIN to store").Required().String()
	verifyPinCmd  = app.Command("verify-pin", "Verify a PIN candidate")
	verifyPinArg  = verifyPinCmd.Arg("pin", "PIN candidate").Required().String()
	restrictedCmd = app.Command("restricted", "Toggle restricted mode")
	clearCmd      = app.Command("clear", "Clear all parental settings")

	// purchase command
	purchaseCmd = app.Command("purchase", "Run the unlimited-selection purchase flow")

	// auth commands
	signinCmd      = app.Command("signin", "Sign in")
	signinEmail    = signinCmd.Arg("email", "Account email").Required().String()
	signinPassword = signinCmd.Arg("password", "Account password").Required().String()
	signoutCmd     = app.Command("signout", "Sign out")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	switch command {
	case videosCmd.FullCommand():
		call(http.MethodGet, "/videos", nil)
	case playCmd.FullCommand():
		call(http.MethodPost, "/playback/play", map[string]string{"videoId": *playVideoID})
	case pauseCmd.FullCommand():
		call(http.MethodPost, "/playback/pause", map[string]string{})
	case retryCmd.FullCommand():
		call(http.MethodPost, "/playback/retry", map[string]string{"videoId": *retryVideoID})
	case stateCmd.FullCommand():
		call(http.MethodGet, "/playback/state", nil)
	case selectCmd.FullCommand():
		call(http.MethodPost, "/settings/selection", map[string]string{"videoId": *selectVideoID})
	case settingsCmd.FullCommand():
		call(http.MethodGet, "/settings/", nil)
	case setPinCmd.FullCommand():
		call(http.MethodPost, "/settings/pin", map[string]string{"pin": *setPinValue})
	case verifyPinCmd.FullCommand():
		call(http.MethodPost, "/settings/pin/verify", map[string]string{"pin": *verifyPinArg})
	case restrictedCmd.FullCommand():
		call(http.MethodPost, "/settings/restricted-mode", map[string]string{})
	case clearCmd.FullCommand():
		call(http.MethodPost, "/settings/clear", map[string]string{})
	case purchaseCmd.FullCommand():
		call(http.MethodPost, "/purchase", map[string]string{
			"deviceInfo": "kidctl",
			"appVersion": "dev",
		})
	case signinCmd.FullCommand():
		call(http.MethodPost, "/auth/signin", map[string]string{
			"email":    *signinEmail,
			"password": *signinPassword,
		})
	case signoutCmd.FullCommand():
		call(http.MethodPost, "/auth/signout", map[string]string{})
	}
}

// call performs one request and pretty-prints the JSON response.
func call(method, path string, body any) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, *server+path, reader)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		fmt.Println(string(data))
	} else {
		fmt.Println(pretty.String())
	}

	if resp.StatusCode >= 400 {
		fmt.Printf("Request failed: %s\n", resp.Status)
		os.Exit(1)
	}
}
