package infra

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNoCredentials indica que nenhuma API key foi configurada.
// O store continua utilizável: só que rejeita tudo (fail-closed).
var ErrNoCredentials = errors.New("no API keys configured")

// StaticCredentials é um conjunto imutável de API keys.
//
// As chaves ficam guardadas como SHA-256: o lookup no map acontece sobre o digest,
// então o tempo de resposta não depende do conteúdo da chave enviada.
type StaticCredentials struct {
	digests map[[sha256.Size]byte]struct{}
}

// NewStaticCredentials ignora entradas vazias e duplicadas.
func NewStaticCredentials(keys ...string) *StaticCredentials {
	s := &StaticCredentials{digests: make(map[[sha256.Size]byte]struct{}, len(keys))}
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		s.digests[sha256.Sum256([]byte(k))] = struct{}{}
	}
	return s
}

// IsValid implementa domain.CredentialStore.
func (s *StaticCredentials) IsValid(key string) bool {
	if s == nil || key == "" {
		return false
	}
	_, ok := s.digests[sha256.Sum256([]byte(key))]
	return ok
}

func (s *StaticCredentials) Len() int {
	if s == nil {
		return 0
	}
	return len(s.digests)
}

type keysFile struct {
	Keys []string `yaml:"keys"`
}

// LoadCredentials junta as chaves da lista inline (ex: API_KEYS="a,b") com as do
// arquivo YAML opcional (`keys: [...]`).
//
// Sem nenhuma chave devolve um store vazio junto com ErrNoCredentials, para o
// chamador decidir se só avisa ou se aborta.
func LoadCredentials(inline []string, path string) (*StaticCredentials, error) {
	keys := append([]string(nil), inline...)

	if path = strings.TrimSpace(path); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read api keys file %s: %w", path, err)
		}
		var f keysFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse api keys file %s: %w", path, err)
		}
		keys = append(keys, f.Keys...)
	}

	store := NewStaticCredentials(keys...)
	if store.Len() == 0 {
		return store, ErrNoCredentials
	}
	return store, nil
}
