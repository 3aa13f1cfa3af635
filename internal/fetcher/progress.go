package fetcher

import (
	"io"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// progressStep is the number of bytes between two progress messages
var progressStep int64 = 4 << 20

// progressReader logs how much of a package list has been downloaded
type progressReader struct {
	r      io.Reader
	branch string
	total  int64 // from Content-Length, -1 when unknown
	read   int64
	next   int64
}

func newProgressReader(r io.Reader, branch string, total int64) *progressReader {
	return &progressReader{r: r, branch: branch, total: total, next: progressStep}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.read >= p.next || (err == io.EOF && p.read > 0) {
		p.report()
		for p.next <= p.read {
			p.next += progressStep
		}
	}
	return n, err
}

func (p *progressReader) report() {
	if p.total > 0 {
		logrus.Debugf("%s: downloaded %s of %s (%d%%)", p.branch,
			humanize.Bytes(uint64(p.read)), humanize.Bytes(uint64(p.total)), p.read*100/p.total)
		return
	}
	logrus.Debugf("%s: downloaded %s", p.branch, humanize.Bytes(uint64(p.read)))
}
