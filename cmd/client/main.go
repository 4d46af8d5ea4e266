// Command client is a terminal client for a parley server: it logs in,
// opens the event channel, prints everything the server pushes, and sends
// direct messages typed as "<receiver> <body>" lines.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "server base URL")
	username := flag.String("user", "", "username")
	password := flag.String("pass", "", "password")
	flag.Parse()

	if *username == "" || *password == "" {
		log.Fatal("both -user and -pass are required")
	}

	token, err := login(*addr, *username, *password)
	if err != nil {
		log.Fatalf("login failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wsURL := strings.Replace(*addr, "http", "ws", 1) + "/ws?token=" + token
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		log.Fatalf("dial failed: %v", err)
	}
	defer conn.CloseNow()

	go func() {
		for {
			var evt map[string]any
			if err := wsjson.Read(ctx, conn, &evt); err != nil {
				log.Printf("connection closed: %v", err)
				cancel()
				return
			}
			out, _ := json.Marshal(evt)
			fmt.Println(string(out))
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		receiver, body, ok := strings.Cut(scanner.Text(), " ")
		if !ok {
			fmt.Println("usage: <receiver> <body>")
			continue
		}
		err := wsjson.Write(ctx, conn, map[string]string{
			"event": "send_direct",
			"to":    receiver,
			"body":  body,
		})
		if err != nil {
			log.Fatalf("write failed: %v", err)
		}
	}

	conn.Close(websocket.StatusNormalClosure, "")
}

func login(addr, username, password string) (string, error) {
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return "", err
	}
	resp, err := http.Post(addr+"/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Token, nil
}
