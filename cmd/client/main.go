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
	"os"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"

	"term-chatroom/infrastructure/ws"
)

func main() {
	username := flag.String("user", "", "Username to chat as")
	register := flag.Bool("register", false, "Create the account before logging in")
	flag.Parse()

	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	reader := bufio.NewReader(os.Stdin)
	name := strings.TrimSpace(*username)
	if name == "" {
		name = prompt(reader, "Username: ")
	}
	password := prompt(reader, "Password: ")

	token, err := authenticate(config.ServerURL, name, password, *register)
	if err != nil {
		log.Fatalf("Authentication failed: %v", err)
	}
	color.Green.Println("Authenticated.")

	wsURL, err := config.WebsocketURL()
	if err != nil {
		log.Fatal(err)
	}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Fatalf("Connection failed: %v", err)
	}
	defer conn.Close()

	if err := writeFrame(conn, ws.EventJoin, ws.JoinRequest{Username: name, Token: token}); err != nil {
		log.Fatalf("Join failed: %v", err)
	}

	done := make(chan struct{})
	go receiveLoop(conn, name, done)

	color.Cyan.Println("Type a message and press enter. /users lists the room, /quit leaves.")
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		line = strings.TrimRight(line, "\r\n")

		switch {
		case line == "/quit":
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		case line == "/users":
			if err := writeFrame(conn, ws.EventGetOnlineUsers, ws.GetOnlineUsersRequest{}); err != nil {
				log.Fatalf("Request failed: %v", err)
			}
		case line != "":
			if err := writeFrame(conn, ws.EventSendMessage, ws.SendMessageRequest{Content: line}); err != nil {
				log.Fatalf("Send failed: %v", err)
			}
		}
	}
}

// writeFrame encodes a payload into its envelope and sends it on the socket.
func writeFrame(conn *websocket.Conn, eventType string, payload any) error {
	data, err := ws.EncodeFrame(eventType, payload)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

// authenticate exchanges credentials for a session token, creating the
// account first when asked to.
func authenticate(serverURL, username, password string, register bool) (string, error) {
	endpoint := "/login"
	if register {
		endpoint = "/register"
	}

	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return "", err
	}

	resp, err := http.Post(serverURL+endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(data)))
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", err
	}
	return result.Token, nil
}

// receiveLoop prints every server frame until the socket closes.
func receiveLoop(conn *websocket.Conn, self string, done chan<- struct{}) {
	defer close(done)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			color.Yellow.Println("Disconnected.")
			return
		}

		var envelope ws.Envelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			continue
		}

		switch envelope.Type {
		case ws.EventMessageHistory:
			var history ws.HistoryPayload
			if err := json.Unmarshal(envelope.Payload, &history); err == nil {
				printHistory(history)
			}
		case ws.EventNewMessage:
			var message ws.MessagePayload
			if err := json.Unmarshal(envelope.Payload, &message); err == nil {
				printMessage(message, self)
			}
		case ws.EventUserJoined:
			var presence ws.PresencePayload
			if err := json.Unmarshal(envelope.Payload, &presence); err == nil {
				color.Yellow.Printf("-- %s joined the room --\n", presence.Username)
			}
		case ws.EventUserLeft:
			var presence ws.PresencePayload
			if err := json.Unmarshal(envelope.Payload, &presence); err == nil {
				color.Yellow.Printf("-- %s left the room --\n", presence.Username)
			}
		case ws.EventOnlineUsers:
			var online ws.OnlineUsersPayload
			if err := json.Unmarshal(envelope.Payload, &online); err == nil {
				printOnlineUsers(online)
			}
		case ws.EventError:
			var failure ws.ErrorPayload
			if err := json.Unmarshal(envelope.Payload, &failure); err == nil {
				color.Red.Printf("error: %s\n", failure.Message)
			}
		}
	}
}

func printHistory(history ws.HistoryPayload) {
	if len(history.Messages) == 0 {
		color.Cyan.Println("-- the room is quiet, no history yet --")
		return
	}
	color.Cyan.Printf("-- replaying the last %d messages --\n", len(history.Messages))
	for _, message := range history.Messages {
		printMessage(message, "")
	}
}

func printMessage(message ws.MessagePayload, self string) {
	stamp := message.Timestamp.Local().Format("15:04:05")
	sender := message.Sender
	if sender == self {
		sender = color.Green.Render(sender)
	} else {
		sender = color.Blue.Render(sender)
	}
	fmt.Printf("[%s] %s: %s\n", stamp, sender, message.Content)
}

func printOnlineUsers(online ws.OnlineUsersPayload) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"#", "Username"})
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for i, user := range online.Users {
		table.Append([]string{fmt.Sprintf("%d", i+1), user})
	}
	table.Render()
}
