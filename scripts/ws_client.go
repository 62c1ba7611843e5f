// Package main runs a demo WebSocket client that follows one switchlist's
// events. With -create it first plans a switchlist for -route.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := flag.String("base", "http://localhost:"+port, "API base URL")
	id := flag.String("switchlist", "", "Switchlist id to follow")
	create := flag.Bool("create", false, "Create a switchlist first")
	route := flag.String("route", "bay-turn", "Train route for -create")
	flag.Parse()

	if *create {
		body, _ := json.Marshal(map[string]string{"name": "ws demo", "trainRouteId": *route})
		resp, err := http.Post(*base+"/switchlists", "application/json", bytes.NewReader(body))
		if err != nil {
			log.Fatalf("create switchlist: %v", err)
		}
		var out struct {
			ID    string `json:"id"`
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&out)
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			log.Fatalf("create switchlist: %d %s", resp.StatusCode, out.Error)
		}
		*id = out.ID
		log.Printf("created switchlist %s", *id)
	}
	if *id == "" {
		log.Fatal("-switchlist or -create is required")
	}

	u, err := url.Parse(*base)
	if err != nil {
		log.Fatalf("bad base url: %v", err)
	}
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = fmt.Sprintf("/switchlists/%s/events", *id)

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("dial %s: %v", u, err)
	}
	defer conn.Close()
	log.Printf("following %s (ctrl-c to stop)", u)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}()

	for {
		var evt map[string]any
		if err := conn.ReadJSON(&evt); err != nil {
			log.Printf("stream ended: %v", err)
			return
		}
		b, _ := json.Marshal(evt)
		fmt.Println(string(b))
	}
}
