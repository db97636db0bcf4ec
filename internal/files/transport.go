// Package files stores uploaded document bytes and hands back an opaque
// reference. The case engine keeps the reference verbatim and never reads it.
package files

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"casedesk/internal/platform/idgen"
	"casedesk/pkg/platform/sentinel"
)

// Object describes bytes to store.
type Object struct {
	CaseID      string
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Transport persists an object and returns its reference.
type Transport interface {
	Put(ctx context.Context, obj Object) (string, error)
}

// objectKey builds "<prefix>/<caseID>/<id>-<name>" with path separators in
// the file name flattened.
func objectKey(prefix, caseID, id, name string) string {
	name = strings.NewReplacer("/", "_", "\\", "_").Replace(path.Base("/" + name))
	return strings.TrimPrefix(path.Join(prefix, caseID, id+"-"+name), "/")
}

// Memory keeps objects in process memory. References look like "mem://<key>".
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
	ids     idgen.Generator
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte), ids: idgen.NanoID{Size: 12}}
}

func (m *Memory) Put(ctx context.Context, obj Object) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	ref := "mem://" + objectKey("", obj.CaseID, m.ids.NewID(), obj.Name)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[ref] = data
	return ref, nil
}

// Get returns a stored object's bytes.
func (m *Memory) Get(ref string) (io.Reader, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[ref]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return bytes.NewReader(data), nil
}
