// Terminal chat client for manual testing against a local stack.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"

	"github.com/haidervirk/hatch-chat/pkg/model"
)

type loginResponse struct {
	Token string `json:"token"`
}

func login(apiAddr, userID string) (string, error) {
	reqBody, _ := json.Marshal(map[string]string{"user_id": userID})
	resp, err := http.Post(apiAddr+"/login", "application/json", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("login failed: %s", string(body))
	}

	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return "", err
	}
	return lr.Token, nil
}

func main() {
	serverAddr := flag.String("addr", "localhost:8080", "gateway service address")
	apiAddr := flag.String("api", "http://localhost:8081", "api service address")
	userID := flag.String("user", "user1", "user id")
	channelID := flag.String("channel", "general", "channel id")
	flag.Parse()

	token, err := login(*apiAddr, *userID)
	if err != nil {
		log.Fatalf("login: %v", err)
	}

	u := url.URL{
		Scheme:   "ws",
		Host:     *serverAddr,
		Path:     "/ws",
		RawQuery: "channel=" + url.QueryEscape(*channelID) + "&token=" + url.QueryEscape(token),
	}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	fmt.Printf("Connected to %s as %s. Type messages, Ctrl+C to quit.\n", *channelID, *userID)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				log.Printf("connection closed: %v", err)
				return
			}
			var ev model.Event
			if err := json.Unmarshal(data, &ev); err != nil || ev.Type == "" {
				fmt.Printf("<< %s\n", string(data))
				continue
			}
			switch ev.Type {
			case model.EventChatMessage:
				fmt.Printf("[%s] %s: %s\n", ev.Timestamp, ev.Sender, ev.Message)
			case model.EventPresence:
				fmt.Printf("* %s %s\n", ev.Sender, ev.Message)
			}
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-done:
			return
		case <-interrupt:
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if line == "" {
				continue
			}
			frame, _ := json.Marshal(model.InboundFrame{MessageText: line, SenderID: *userID})
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Printf("write: %v", err)
				return
			}
		}
	}
}
