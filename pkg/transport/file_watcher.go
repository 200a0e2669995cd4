package transport

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// FileWatcher observa o diretório do arquivo de configuração e notifica a
// cada escrita, criação ou renomeação do arquivo. Observar o diretório
// cobre editores que salvam via arquivo temporário + rename.
type FileWatcher struct {
	path     string
	notifier Notifier
	logger   zerolog.Logger
	watcher  *fsnotify.Watcher
}

// NewFileWatcher registra o watch imediatamente; eventos ocorridos antes de
// Start ficam enfileirados no fsnotify.
func NewFileWatcher(path string, notifier Notifier) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("caminho inválido '%s': %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("falha ao criar watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("falha ao observar '%s': %w", filepath.Dir(abs), err)
	}

	return &FileWatcher{
		path:     abs,
		notifier: notifier,
		logger:   log.With().Str("component", "file_watcher").Str("file", abs).Logger(),
		watcher:  watcher,
	}, nil
}

// Start bloqueia até ctx ser cancelado e fecha o watcher ao sair.
func (fw *FileWatcher) Start(ctx context.Context) {
	defer fw.watcher.Close()
	fw.logger.Info().Msg("Monitorando arquivo de configuração")

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if !fw.relevant(event) {
				continue
			}
			fw.logger.Debug().Str("op", event.Op.String()).Msg("Alteração detectada no arquivo")
			fw.notifier.Notify()
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn().Err(err).Msg("Erro no watcher de arquivo")
		}
	}
}

func (fw *FileWatcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != fw.path {
		return false
	}
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0
}
