package dataset

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

const (
	SentencesFileName = "sentences.txt"
	TagsFileName      = "tags.txt"

	// DefaultDirCreationPerm is used when creating new directories.
	DefaultDirCreationPerm = 0755
)

// SaveSentences writes the sentences to saveDir as two aligned files: sentences.txt, with the
// space-joined tokens of one sentence per line, and tags.txt with the matching tags.
// saveDir is created if needed.
func SaveSentences(saveDir string, sentences []Sentence) (err error) {
	klog.Infof("saving %d sentences in %q", len(sentences), saveDir)
	if err = os.MkdirAll(saveDir, DefaultDirCreationPerm); err != nil {
		return errors.Wrapf(err, "failed to create directory %q", saveDir)
	}
	sentencesPath := filepath.Join(saveDir, SentencesFileName)
	tagsPath := filepath.Join(saveDir, TagsFileName)
	sentencesFile, err := os.Create(sentencesPath)
	if err != nil {
		return errors.Wrapf(err, "creating %q", sentencesPath)
	}
	defer closeFile(sentencesFile, &err)
	tagsFile, err := os.Create(tagsPath)
	if err != nil {
		return errors.Wrapf(err, "creating %q", tagsPath)
	}
	defer closeFile(tagsFile, &err)

	sentencesW := bufio.NewWriter(sentencesFile)
	tagsW := bufio.NewWriter(tagsFile)
	for _, sentence := range sentences {
		if _, err = sentencesW.WriteString(strings.Join(sentence.Tokens, " ") + "\n"); err != nil {
			return errors.Wrapf(err, "writing %q", sentencesPath)
		}
		if _, err = tagsW.WriteString(strings.Join(sentence.Tags, " ") + "\n"); err != nil {
			return errors.Wrapf(err, "writing %q", tagsPath)
		}
	}
	if err = sentencesW.Flush(); err != nil {
		return errors.Wrapf(err, "writing %q", sentencesPath)
	}
	if err = tagsW.Flush(); err != nil {
		return errors.Wrapf(err, "writing %q", tagsPath)
	}
	return nil
}

// closeFile closes f, reporting the error in *err if there wasn't one already.
func closeFile(f *os.File, err *error) {
	closeErr := f.Close()
	if closeErr != nil && *err == nil {
		*err = errors.Wrapf(closeErr, "closing %q", f.Name())
	}
}
