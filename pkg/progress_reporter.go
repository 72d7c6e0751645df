package pkg

import (
	"time"

	"github.com/cheggaaa/pb"
	"github.com/spf13/afero"
)

const progressBarRecheckTime = 1

// ReportProgressOnFileSize will start printing the size of a file in relation to what the expected size is.
// With an expectedSize of 0 only the growing byte count is shown.
func ReportProgressOnFileSize(fs afero.Fs, location string, expectedSize int64, doneChan chan bool) {
	bar := pb.New64(expectedSize)
	bar.SetUnits(pb.U_BYTES)
	bar.Start()
	defer bar.Finish()

	ticker := time.NewTicker(progressBarRecheckTime * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-doneChan:
			return
		case <-ticker.C:
			size, err := FileOrDirSize(fs, location)
			if err == nil {
				bar.Set64(int64(size))
			}
		}
	}
}
