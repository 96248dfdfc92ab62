package main

import (
	"encoding/json"
	"log"
	"net/http"
	"time"
)

type InferenceResponse struct {
	Success    bool    `json:"success"`
	Text       string  `json:"text"`
	RawText    string  `json:"raw_text"`
	Duration   float64 `json:"duration"`
	Confidence float64 `json:"confidence"`
	Error      string  `json:"error,omitempty"`
}

type HealthResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(HealthResponse{Success: true})
}

func transcribeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Parse multipart form
	err := r.ParseMultipartForm(32 << 20) // 32 MB
	if err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	useVad := r.FormValue("use_vad")
	usePunc := r.FormValue("use_punc")
	batchSize := r.FormValue("batch_size_seconds")
	hotword := r.FormValue("hotword")
	language := r.FormValue("language")

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Error getting audio file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	log.Printf("🎤 TRANSCRIPTION REQUEST RECEIVED:")
	log.Printf("  Filename: %s", header.Filename)
	log.Printf("  Size: %d bytes", header.Size)
	log.Printf("  use_vad=%s use_punc=%s batch_size_seconds=%s", useVad, usePunc, batchSize)
	log.Printf("  hotword=%q language=%s", hotword, language)

	// Simulate inference latency
	time.Sleep(300 * time.Millisecond)

	response := InferenceResponse{
		Success:    true,
		Text:       "这是一段测试听写文本。",
		RawText:    "这是一段测试听写文本",
		Duration:   float64(header.Size-44) / (16000 * 2),
		Confidence: 0.95,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)

	log.Printf("✅ TRANSCRIPTION RESPONSE SENT: '%s'", response.Text)
	log.Println("---")
}

func main() {
	http.HandleFunc("/health", healthHandler)
	http.HandleFunc("/transcribe", transcribeHandler)

	port := ":9000"
	log.Printf("🚀 Test Inference Server starting on port %s", port)
	log.Printf("📡 Endpoint: http://localhost%s", port)
	log.Println("💡 Update your config to use: endpoint: http://localhost:9000")

	if err := http.ListenAndServe(port, nil); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}
