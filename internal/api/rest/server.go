package rest

import (
	"encoding/json"
	"net/http"
	"strconv"

	"itchbook/internal/orderbook"
)

// Server exposes read-only book diagnostics over HTTP. The underlying reads
// are unsynchronized against the driver, so values may be momentarily torn;
// this surface is for dashboards and debugging, not trading decisions.
type Server struct{ mux *http.ServeMux }

type topOfBook struct {
	Symbol  string  `json:"symbol"`
	BestBid float64 `json:"best_bid,omitempty"`
	BestAsk float64 `json:"best_ask,omitempty"`
	Orders  int     `json:"resting_orders"`
}

type depthLevel struct {
	Price  float64 `json:"price"`
	Qty    uint64  `json:"qty"`
	Orders int     `json:"orders"`
}

type depthView struct {
	Symbol string       `json:"symbol"`
	Bids   []depthLevel `json:"bids"`
	Asks   []depthLevel `json:"asks"`
}

func New(book *orderbook.Book) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/book/top", func(w http.ResponseWriter, r *http.Request) {
		top := topOfBook{Symbol: book.Symbol(), Orders: book.Depth()}
		if bid, ok := book.BestBid(); ok {
			top.BestBid = bid.Float64()
		}
		if ask, ok := book.BestAsk(); ok {
			top.BestAsk = ask.Float64()
		}
		writeJSON(w, top)
	})
	mux.HandleFunc("/book/depth", func(w http.ResponseWriter, r *http.Request) {
		levels := 10
		if v := r.URL.Query().Get("levels"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				levels = n
			}
		}
		snap := book.Snapshot(levels)
		view := depthView{Symbol: book.Symbol()}
		for _, l := range snap.Bids {
			view.Bids = append(view.Bids, depthLevel{Price: l.Price.Float64(), Qty: l.Qty, Orders: l.Orders})
		}
		for _, l := range snap.Asks {
			view.Asks = append(view.Asks, depthLevel{Price: l.Price.Float64(), Qty: l.Qty, Orders: l.Orders})
		}
		writeJSON(w, view)
	})
	return &Server{mux: mux}
}

func (s *Server) Handler() http.Handler { return s.mux }

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
