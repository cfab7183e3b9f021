package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
)

type dishEntry struct {
	Title        string   `json:"title"`
	Calories     *float64 `json:"calories"`
	Fat          *float64 `json:"fat"`
	SaturatedFat *float64 `json:"saturatedFat"`
	Cholesterol  *float64 `json:"cholesterol"`
	Sodium       *float64 `json:"sodium"`
	Carbohydrate *float64 `json:"carbohydrate"`
	Fiber        *float64 `json:"fiber"`
	Sugar        *float64 `json:"sugar"`
	Protein      *float64 `json:"protein"`
	Source       *string  `json:"source"`
}

func main() {
	var (
		port    = flag.String("port", "9099", "port to listen on")
		data    = flag.String("data", "mock-nutrition.json", "path to mock data file")
		verbose = flag.Bool("verbose", false, "enable startup logging")
	)
	flag.Parse()

	file, err := os.ReadFile(*data)
	if err != nil {
		log.Fatalf("read mock data: %v", err)
	}

	var payload map[string]dishEntry
	if err := json.Unmarshal(file, &payload); err != nil {
		log.Fatalf("parse mock data: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/nutrition", func(w http.ResponseWriter, r *http.Request) {
		title := r.URL.Query().Get("title")
		entry, ok := payload[title]
		if !ok {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(entry); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	addr := ":" + *port
	log.Printf("mock nutrition api listening on %s", addr)
	if *verbose {
		log.Printf("loaded %d mock entries", len(payload))
	}
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
