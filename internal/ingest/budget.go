package ingest

// contentBudget tracks the bytes and files admitted against the max total
// size and the file cap. Once a file is refused for size, every later file
// is refused too.
type contentBudget struct {
	limit     int64
	used      int64
	exhausted bool
	fileLimit int
	files     int
}

func newContentBudget(limit int64, fileLimit int) *contentBudget {
	return &contentBudget{limit: limit, fileLimit: fileLimit}
}

func (budget *contentBudget) reserve(size int64) bool {
	if budget.exhausted || budget.used+size > budget.limit {
		budget.exhausted = true
		return false
	}
	budget.used += size
	return true
}

func (budget *contentBudget) release(size int64) {
	budget.used -= size
}

// admitFile counts one more file read. A zero fileLimit admits every file.
func (budget *contentBudget) admitFile() bool {
	if budget.fileLimit > 0 && budget.files >= budget.fileLimit {
		return false
	}
	budget.files++
	return true
}
