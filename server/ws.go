package server

import (
	"bytes"
	"image/jpeg"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1 << 16,
	// the viewer lives on a lab network, same-origin enforcement just
	// gets in the way of bench laptops
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HTTPLive upgrades to a websocket and streams each rendered frame as a
// binary JPEG message.  Slow clients skip frames rather than stalling the
// render loop.
func (v *Viewer) HTTPLive(w http.ResponseWriter, r *http.Request) {
	// subscribe before the handshake completes so a client never misses a
	// frame rendered just after its dial returns
	frames, cancel := v.surf.Subscribe()
	defer cancel()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// drain client messages so pings and close frames are processed
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	buf := new(bytes.Buffer)
	for img := range frames {
		buf.Reset()
		if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: 85}); err != nil {
			log.Printf("live feed encode: %v", err)
			return
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, buf.Bytes()); err != nil {
			return
		}
	}
}
