// filename: internal/analyzer/history_test.go
package analyzer

import (
	"context"
	"fmt"
	"testing"

	"github.com/sigscope/sigscope/internal/models"
)

func analysisWithType(messageType string) *models.MessageAnalysis {
	decoded := &models.DecodedMessage{
		MessageType: messageType,
		Protocol:    models.ProtocolRRC,
	}
	return models.NewMessageAnalysis(decoded, models.AnalysisContext{})
}

func TestMemoryHistoryAppend(t *testing.T) {
	h := NewMemoryHistory(10)
	ctx := context.Background()

	seq1, err := h.Append(ctx, analysisWithType("RRCSetupRequest"))
	if err != nil {
		t.Fatalf("Ошибка добавления записи: %v", err)
	}
	seq2, _ := h.Append(ctx, analysisWithType("RRCSetup"))

	if seq2 <= seq1 {
		t.Errorf("Порядковые номера должны расти: %d, затем %d", seq1, seq2)
	}

	count, _ := h.Len(ctx)
	if count != 2 {
		t.Errorf("Ожидалось 2 записи, получено %d", count)
	}
}

func TestMemoryHistoryEviction(t *testing.T) {
	h := NewMemoryHistory(3)
	ctx := context.Background()

	// Переполняем хранилище: вытесняется самая старая запись
	for i := 0; i < 5; i++ {
		h.Append(ctx, analysisWithType(fmt.Sprintf("Type%d", i)))
	}

	count, _ := h.Len(ctx)
	if count != 3 {
		t.Errorf("Ожидалось 3 записи после вытеснения, получено %d", count)
	}

	all, err := h.All(ctx)
	if err != nil {
		t.Fatalf("Ошибка чтения истории: %v", err)
	}
	expected := []string{"Type2", "Type3", "Type4"}
	for i, analysis := range all {
		if analysis.MessageType() != expected[i] {
			t.Errorf("Позиция %d: ожидался %s, получен %s", i, expected[i], analysis.MessageType())
		}
	}

	// Порядковые номера не переиспользуются после вытеснения
	seq, _ := h.Append(ctx, analysisWithType("Type5"))
	if seq != 6 {
		t.Errorf("Ожидался порядковый номер 6, получен %d", seq)
	}
}

func TestMemoryHistoryMetricsIndex(t *testing.T) {
	h := NewMemoryHistory(3)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		h.Append(ctx, analysisWithType(fmt.Sprintf("Type%d", i)))
	}

	// Индекс вытесняется синхронно с историей
	entries, err := h.Metrics(ctx)
	if err != nil {
		t.Fatalf("Ошибка чтения индекса метрик: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Ожидалось 3 записи индекса после вытеснения, получено %d", len(entries))
	}
	expected := []string{"Type1", "Type2", "Type3"}
	for i, entry := range entries {
		if entry.MessageType != expected[i] {
			t.Errorf("Позиция %d: ожидался %s, получен %s", i, expected[i], entry.MessageType)
		}
		if entry.Seq != uint64(i+2) {
			t.Errorf("Позиция %d: ожидался порядковый номер %d, получен %d", i, i+2, entry.Seq)
		}
	}

	if err := h.Clear(ctx); err != nil {
		t.Fatalf("Ошибка очистки: %v", err)
	}
	entries, _ = h.Metrics(ctx)
	if len(entries) != 0 {
		t.Errorf("После очистки индекс метрик должен быть пустым, получено %d записей", len(entries))
	}
}

func TestMemoryHistoryClear(t *testing.T) {
	h := NewMemoryHistory(10)
	ctx := context.Background()

	h.Append(ctx, analysisWithType("RRCSetup"))
	if err := h.Clear(ctx); err != nil {
		t.Fatalf("Ошибка очистки: %v", err)
	}

	count, _ := h.Len(ctx)
	if count != 0 {
		t.Errorf("После очистки ожидалось 0 записей, получено %d", count)
	}

	all, _ := h.All(ctx)
	if len(all) != 0 {
		t.Errorf("После очистки история должна быть пустой, получено %d записей", len(all))
	}
}
