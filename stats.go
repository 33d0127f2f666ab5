package ringchan

// Stats is a simple struct of counters. When (optionally) supplied as part of
// the constructor options, its fields will be incremented through the course
// of the channel lifetime. In order to obtain a consistent read of the stats
// values use State(), which copies them while holding the gate.
// Note that collecting these stats will incur a performance penalty, mainly
// due to the repeated calls to time.Now()
type Stats struct {
	WriteCalls            int64 `json:"writeCalls"`
	ReadCalls             int64 `json:"readCalls"`
	BytesWritten          int64 `json:"bytesWritten"`
	BytesRead             int64 `json:"bytesRead"`
	WriterYields          int64 `json:"writerYields"`
	WriterWaitNanoseconds int64 `json:"writerWaitNanoseconds"`
	ReaderYields          int64 `json:"readerYields"`
	ReaderWaitNanoseconds int64 `json:"readerWaitNanoseconds"`
	WouldBlocks           int64 `json:"wouldBlocks"`
	Interrupts            int64 `json:"interrupts"`
	TransferFaults        int64 `json:"transferFaults"`
}
