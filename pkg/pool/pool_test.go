package pool

import (
	"bytes"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParallelize(t *testing.T) {
	for _, pl := range []*Pool{nil, NewPool(0), NewPool(3)} {
		results := pl.Parallelize(20, func(i int) interface{} { return i * i })
		require.Len(t, results, 20)
		for i, r := range results {
			assert.Equal(t, i*i, r)
		}
		if pl != nil {
			pl.TearDown()
		}
	}
}

func TestLockedReader(t *testing.T) {
	data := make([]byte, 64*32)
	for i := range data {
		data[i] = byte(i / 32)
	}
	r := NewLockedReader(bytes.NewReader(data))

	var (
		wg   sync.WaitGroup
		mtx  sync.Mutex
		seen = map[byte]bool{}
	)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := make([]byte, 32)
			_, err := io.ReadFull(r, buf)
			assert.NoError(t, err)
			mtx.Lock()
			seen[buf[0]] = true
			mtx.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 64, "every chunk should be read exactly once")
}
