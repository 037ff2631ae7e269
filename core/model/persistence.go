package model

import (
	"encoding/gob"
	"io"
	"os"

	"github.com/ezoic/flufit/pkg/errors"
)

// SaveModel gob-encodes a fitted model to filename.
//
// Only exported fields are persisted; loggers and other runtime handles are
// rebuilt by the model constructor before LoadModel fills the rest.
//
// Example:
//
//	if err := model.SaveModel(lr, "results/bodytemp_linear.gob"); err != nil {
//		log.Fatal(err)
//	}
func SaveModel(m interface{}, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "failed to create model file %q", filename)
	}
	err = SaveModelToWriter(m, file)
	if cerr := file.Close(); err == nil && cerr != nil {
		err = errors.Wrapf(cerr, "failed to close model file %q", filename)
	}
	return err
}

// SaveModelToWriter gob-encodes m to w.
func SaveModelToWriter(m interface{}, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(m); err != nil {
		return errors.Wrap(err, "failed to encode model")
	}
	return nil
}

// LoadModel decodes a model saved by SaveModel into m, which must be a pointer
// created by the model's constructor.
func LoadModel(m interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrapf(err, "failed to open model file %q", filename)
	}
	defer func() { _ = file.Close() }()

	return LoadModelFromReader(m, file)
}

// LoadModelFromReader decodes a gob-encoded model from r into m.
func LoadModelFromReader(m interface{}, r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(m); err != nil {
		return errors.Wrap(err, "failed to decode model")
	}
	return nil
}
