package ws

import (
	"net/http"
	"net/url"

	"github.com/julienschmidt/httprouter"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"quizroom/internal/game"
)

const qrSize = 320 // mobile-friendly

// NewRouter wires the HTTP surface: the websocket endpoint, health and
// version probes, and a PNG QR code for the live invite link.
func NewRouter(relay *Relay, coord *game.Coordinator, publicURL, version string, log *zap.Logger) *httprouter.Router {
	mux := httprouter.New()

	mux.GET("/ws", relay.ServeWS)

	mux.GET("/healthz", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	mux.GET("/version", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("quizroom v" + version + "\n"))
	})

	mux.GET("/invite/:code/qr", serveInviteQR(coord, publicURL, log))

	return mux
}

// serveInviteQR renders the join URL for the current room as a PNG QR
// code. Requests for a code that is not the live room 404 so stale links
// never render a scannable code.
func serveInviteQR(coord *game.Coordinator, publicURL string, log *zap.Logger) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code := ps.ByName("code")
		live, ok := coord.InviteCode()
		if !ok || code != live {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		joinURL := joinLink(publicURL, r, code)
		png, err := qrcode.Encode(joinURL, qrcode.Medium, qrSize)
		if err != nil {
			log.Warn("qr generation failed", zap.Error(err))
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}

// joinLink prefers the configured public URL and falls back to deriving
// scheme and host from the request (respecting X-Forwarded-Proto).
func joinLink(publicURL string, r *http.Request, code string) string {
	base := publicURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + r.Host
	}
	return base + "/join?room=" + url.QueryEscape(code)
}
