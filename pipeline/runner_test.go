package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"manifestcleaner/manifest"
	"manifestcleaner/reference"
	"manifestcleaner/standardize"
)

var runnerPayloadRegex = regexp.MustCompile(`(?s)\{"items":\[.*?\]\}`)

// newEchoServer имитирует сервис нормализации: каждому входу отвечает
// "R-<вход>".
func newEchoServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		var payload struct {
			Items []struct {
				Input string `json:"input"`
			} `json:"items"`
		}
		if err := json.Unmarshal([]byte(runnerPayloadRegex.FindString(req.Messages[0].Content)), &payload); err != nil {
			http.Error(w, "no payload", http.StatusBadRequest)
			return
		}

		items := make([]map[string]string, len(payload.Items))
		for i, item := range payload.Items {
			items[i] = map[string]string{"input": item.Input, "output": "R-" + item.Input}
		}
		content, _ := json.Marshal(map[string]any{"items": items})
		envelope, _ := json.Marshal(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": string(content)}},
			},
		})
		w.Write(envelope)
	}))
}

func writeTestPrompt(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("Clean these values:\n{{INPUT}}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunnerProcessFile(t *testing.T) {
	server := newEchoServer(t)
	defer server.Close()

	books, err := reference.Open(":memory:", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer books.Close()
	if err := books.UpsertSCAC(reference.Carrier{Code: "MAEU", CompanyName: "Maersk Line"}); err != nil {
		t.Fatal(err)
	}
	if err := books.UpsertHSCode("52051210", "Cotton yarn"); err != nil {
		t.Fatal(err)
	}

	workDir := t.TempDir()
	inputPath := filepath.Join(workDir, "manifest.csv")
	csvContent := "Master BOL,Container Numbers,House BOL,Carrier Code,Shipper,Shipper Address,Place of Receipt,Commodity\n" +
		"M1,C1,H1,maeu,Acme Pvt. Ltd.,\"12 Marine Drive, Mumbai\",ICD TUGHLAKABAD,COTTON YARN HS 52051210\n" +
		"M1,C1,H1,maeu,Acme Pvt. Ltd.,\"12 Marine Drive, Mumbai\",ICD TUGHLAKABAD,COTTON YARN HS 52051210\n" +
		"M2,C2,,XXXX,acme pvt ltd,\"12 Marine Drive, Mumbai\",nhava sheva port,PLAIN GOODS\n"
	if err := os.WriteFile(inputPath, []byte(csvContent), 0o644); err != nil {
		t.Fatal(err)
	}

	client := standardize.NewClient(standardize.ClientConfig{
		Endpoint: server.URL,
		Model:    "test-model",
		Timeout:  5 * time.Second,
		Retry: standardize.RetryConfig{
			MaxAttempts:  2,
			InitialDelay: time.Millisecond,
			MaxDelay:     5 * time.Millisecond,
			Multiplier:   2.0,
		},
	}, nil)

	tempDir := filepath.Join(workDir, "temp")
	outputDir := filepath.Join(workDir, "out")
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		t.Fatal(err)
	}

	runner := NewRunner(client, books, Config{
		TempDir:         tempDir,
		IDColumn:        "Row ID",
		PartyColumns:    []string{"Shipper"},
		AddressColumns:  []string{"Shipper Address"},
		PartyPromptPath: writeTestPrompt(t, workDir, "party.txt"),
		CityPromptPath:  writeTestPrompt(t, workDir, "city.txt"),
		Engine:          standardize.EngineConfig{ChunkSize: 10, MaxConcurrency: 2},
	}, testLogger)

	result := runner.ProcessFile(context.Background(), inputPath, outputDir)
	if result.Err != nil {
		t.Fatal(result.Err)
	}

	output, err := manifest.ReadCSV(result.Output, nil)
	if err != nil {
		t.Fatal(err)
	}

	// Точный дубликат удален
	if output.RowCount() != 2 {
		t.Fatalf("RowCount = %d, want 2", output.RowCount())
	}

	// SCAC -> LSP
	if got := output.Cell(0, "LSP"); got != "Maersk Line" {
		t.Errorf("LSP = %q", got)
	}
	if got := output.Cell(1, "LSP"); got != "" {
		t.Errorf("unknown SCAC must leave LSP empty, got %q", got)
	}

	// Нормализация имени: обе строки делят одно предочищенное значение
	first := output.Cell(0, "Refined Shipper")
	second := output.Cell(1, "Refined Shipper")
	if first != "R-ACME PRIVATE LIMITED" || first != second {
		t.Errorf("Refined Shipper = %q / %q", first, second)
	}

	// Пункт приема груза
	if got := output.Cell(0, "Place of Receipt"); got != "TUGHLAKABAD" {
		t.Errorf("Place of Receipt = %q", got)
	}

	// Город не прошел сверку со справочником: ячейка очищена
	if got := output.Cell(0, "Shipper City"); got != "" {
		t.Errorf("unverified city must be cleared, got %q", got)
	}
	if !output.HasColumn("Shipper City State") || !output.HasColumn("Shipper City PIN") {
		t.Error("state and PIN columns must be created")
	}

	// Коды товарной номенклатуры
	if got := output.Cell(0, "Verified HS Codes"); got != "52051210" {
		t.Errorf("Verified HS Codes = %q", got)
	}
	if got := output.Cell(1, "Verified HS Codes"); got != "" {
		t.Errorf("row without codes = %q", got)
	}

	// Идентификаторы строк
	if got := output.Cell(0, "Row ID"); got == "" {
		t.Error("Row ID column must be assigned")
	}

	// Кэш удален после успешной обработки
	if _, err := os.Stat(filepath.Join(tempDir, "manifest")); !os.IsNotExist(err) {
		t.Error("batch cache must be removed after success")
	}
}

func TestRunnerCancelledRunKeepsCacheAndWritesNoOutput(t *testing.T) {
	// Сервис держит запрос до отмены контекста
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer server.Close()

	books, err := reference.Open(":memory:", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer books.Close()

	workDir := t.TempDir()
	inputPath := filepath.Join(workDir, "manifest.csv")
	content := "Master BOL,Container Numbers,House BOL,Carrier Code,Shipper,Shipper Address,Place of Receipt,Commodity\n" +
		"M1,C1,H1,MAEU,ACME PVT LTD,MUMBAI,MUNDRA,GOODS\n"
	if err := os.WriteFile(inputPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	// Ранее сохраненная запись кэша должна пережить прерванный прогон
	tempDir := filepath.Join(workDir, "temp")
	seeded := standardize.NewBatchCache(filepath.Join(tempDir, "manifest"), nil)
	if err := seeded.Save("Shipper", 0, map[string]string{"OTHER VALUE": "KEPT"}); err != nil {
		t.Fatal(err)
	}

	client := standardize.NewClient(standardize.ClientConfig{
		Endpoint: server.URL,
		Model:    "test-model",
		Timeout:  5 * time.Second,
		Retry: standardize.RetryConfig{
			MaxAttempts:  2,
			InitialDelay: time.Millisecond,
			MaxDelay:     5 * time.Millisecond,
			Multiplier:   2.0,
		},
	}, nil)

	runner := NewRunner(client, books, Config{
		TempDir:         tempDir,
		PartyColumns:    []string{"Shipper"},
		AddressColumns:  []string{"Shipper Address"},
		PartyPromptPath: writeTestPrompt(t, workDir, "party.txt"),
		CityPromptPath:  writeTestPrompt(t, workDir, "city.txt"),
		Engine:          standardize.EngineConfig{ChunkSize: 10, MaxConcurrency: 2},
	}, testLogger)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	outputDir := filepath.Join(workDir, "out")
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		t.Fatal(err)
	}

	result := runner.ProcessFile(ctx, inputPath, outputDir)
	if result.Err == nil {
		t.Fatal("cancelled run must fail the file")
	}
	if !errors.Is(result.Err, context.Canceled) {
		t.Errorf("result.Err = %v, want context.Canceled in the chain", result.Err)
	}

	if _, statErr := os.Stat(filepath.Join(outputDir, "cleaned_manifest.csv")); !os.IsNotExist(statErr) {
		t.Error("cancelled run must not write output")
	}
	cached := standardize.NewBatchCache(filepath.Join(tempDir, "manifest"), nil).Load("Shipper", 0)
	if cached["OTHER VALUE"] != "KEPT" {
		t.Errorf("persisted cache entries must survive a cancelled run, got %v", cached)
	}
}

func TestRunnerContinuesAfterFileFailure(t *testing.T) {
	server := newEchoServer(t)
	defer server.Close()

	books, err := reference.Open(":memory:", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer books.Close()

	workDir := t.TempDir()
	inputDir := filepath.Join(workDir, "in")
	if err := os.MkdirAll(inputDir, 0o755); err != nil {
		t.Fatal(err)
	}

	// Файл без обязательных колонок дедупликации
	badContent := "Shipper\nACME\n"
	if err := os.WriteFile(filepath.Join(inputDir, "a_bad.csv"), []byte(badContent), 0o644); err != nil {
		t.Fatal(err)
	}
	goodContent := "Master BOL,Container Numbers,House BOL,Carrier Code,Shipper,Shipper Address,Place of Receipt,Commodity\n" +
		"M1,C1,H1,MAEU,ACME,MUMBAI,MUNDRA,GOODS\n"
	if err := os.WriteFile(filepath.Join(inputDir, "b_good.csv"), []byte(goodContent), 0o644); err != nil {
		t.Fatal(err)
	}

	client := standardize.NewClient(standardize.ClientConfig{
		Endpoint: server.URL,
		Model:    "test-model",
		Timeout:  5 * time.Second,
		Retry: standardize.RetryConfig{
			MaxAttempts:  2,
			InitialDelay: time.Millisecond,
			MaxDelay:     5 * time.Millisecond,
			Multiplier:   2.0,
		},
	}, nil)

	runner := NewRunner(client, books, Config{
		TempDir:         filepath.Join(workDir, "temp"),
		PartyColumns:    []string{"Shipper"},
		AddressColumns:  []string{"Shipper Address"},
		PartyPromptPath: writeTestPrompt(t, workDir, "party.txt"),
		CityPromptPath:  writeTestPrompt(t, workDir, "city.txt"),
		Engine:          standardize.EngineConfig{ChunkSize: 10, MaxConcurrency: 2},
	}, testLogger)

	summary, err := runner.Run(context.Background(), inputDir, filepath.Join(workDir, "out"))
	if err != nil {
		t.Fatal(err)
	}

	if summary.Processed != 1 || summary.Failed != 1 {
		t.Errorf("summary = %d processed / %d failed, want 1/1", summary.Processed, summary.Failed)
	}
	if len(summary.Files) != 2 {
		t.Fatalf("files = %d, want 2", len(summary.Files))
	}

	var sawFailure, sawSuccess bool
	for _, file := range summary.Files {
		if file.Err != nil {
			sawFailure = true
			continue
		}
		sawSuccess = true
		if _, statErr := os.Stat(file.Output); statErr != nil {
			t.Errorf("output for %s missing: %v", file.Path, statErr)
		}
	}
	if !sawFailure || !sawSuccess {
		t.Errorf("expected one failed and one successful file, got failure=%t success=%t", sawFailure, sawSuccess)
	}
}
