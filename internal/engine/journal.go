package engine

import (
	"os"
	"sync"

	"github.com/gocarina/gocsv"
	log "github.com/sirupsen/logrus"
)

// Row is one journal line: a symbol's outcome within a run.
type Row struct {
	RunID       string  `csv:"run_id"`
	Time        string  `csv:"time"`
	Symbol      string  `csv:"symbol"`
	Outcome     string  `csv:"outcome"`
	Reason      string  `csv:"reason"`
	TriggerTime string  `csv:"trigger_time"`
	Direction   string  `csv:"direction"`
	Contract    string  `csv:"contract"`
	Qty         int     `csv:"qty"`
	FillPrice   float64 `csv:"fill_price"`
	TakeProfit  float64 `csv:"take_profit"`
	StopLoss    float64 `csv:"stop_loss"`
}

// Journal appends one CSV row per symbol per run, flushing on every append.
type Journal struct {
	runID string
	mu    sync.Mutex
	file  *os.File
	wrote bool
}

func NewJournal(path, runID string) (*Journal, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	return &Journal{
		runID: runID,
		file:  file,
		wrote: info.Size() > 0,
	}, nil
}

func (j *Journal) RunID() string {
	return j.runID
}

func (j *Journal) Append(row Row) {
	j.mu.Lock()
	defer j.mu.Unlock()
	row.RunID = j.runID

	rows := []Row{row}
	var err error
	if j.wrote {
		err = gocsv.MarshalWithoutHeaders(&rows, j.file)
	} else {
		err = gocsv.Marshal(&rows, j.file)
	}
	if err != nil {
		log.WithFields(log.Fields{"symbol": row.Symbol, "error": err}).Error("journal append failed")
		return
	}
	j.wrote = true
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.file.Close()
}
