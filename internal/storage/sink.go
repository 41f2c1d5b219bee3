package storage

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rohmanhakim/prompt-loader/internal/metadata"
	"github.com/rohmanhakim/prompt-loader/pkg/failure"
	"github.com/rohmanhakim/prompt-loader/pkg/fileutil"
	"github.com/rohmanhakim/prompt-loader/pkg/hashutil"
)

/*
Responsibilities
- Persist rendered prompts under the output directory
- Mirror the template key's directory structure

Output Characteristics
- <outputDir>/<key>, so "image/describe.md" lands in outputDir/image/
- Keys cannot escape outputDir
- Overwrite-safe reruns
*/

type Sink interface {
	Write(
		outputDir string,
		key string,
		rendered string,
	) (WriteResult, failure.ClassifiedError)
}

type LocalSink struct {
	metadataSink metadata.MetadataSink
}

func NewLocalSink(
	metadataSink metadata.MetadataSink,
) LocalSink {
	return LocalSink{
		metadataSink: metadataSink,
	}
}

func (s *LocalSink) Write(
	outputDir string,
	key string,
	rendered string,
) (WriteResult, failure.ClassifiedError) {
	writeResult, storageError := write(outputDir, key, rendered)
	if storageError != nil {
		s.metadataSink.RecordError(
			time.Now(),
			"storage",
			"LocalSink.Write",
			mapStorageErrorToMetadataCause(storageError),
			storageError.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrKey, key),
				metadata.NewAttr(metadata.AttrWritePath, storageError.Path),
			},
		)
		return WriteResult{}, storageError
	}
	s.metadataSink.RecordArtifact(
		metadata.ArtifactRenderedPrompt,
		writeResult.Path(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrKey, key),
			metadata.NewAttr(metadata.AttrWritePath, writeResult.Path()),
			metadata.NewAttr(metadata.AttrContentHash, writeResult.ContentHash()),
		},
	)
	return writeResult, nil
}

func write(
	outputDir string,
	key string,
	rendered string,
) (WriteResult, *StorageError) {
	fullPath, joinErr := fileutil.SafeJoin(outputDir, key)
	if joinErr != nil {
		return WriteResult{}, &StorageError{
			Message:   joinErr.Error(),
			Retryable: false,
			Cause:     ErrCauseInvalidPath,
			Path:      key,
		}
	}

	// Prepare the key's directory inside the output directory
	targetDir := filepath.Dir(fullPath)
	if err := fileutil.EnsureDir(targetDir); err != nil {
		return WriteResult{}, &StorageError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCausePathError,
			Path:      targetDir,
		}
	}

	content := []byte(rendered)
	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		cause := ErrCauseWriteFailure
		retryable := false
		if errors.Is(err, syscall.ENOSPC) {
			cause = ErrCauseDiskFull
			retryable = true
		}
		return WriteResult{}, &StorageError{
			Message:   err.Error(),
			Retryable: retryable,
			Cause:     cause,
			Path:      fullPath,
		}
	}

	return NewWriteResult(key, fullPath, hashutil.Blake3Hex(content)), nil
}
