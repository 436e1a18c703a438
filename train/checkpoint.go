package train

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

const (
	checkpointVersion  = "1.0"
	checkpointMetadata = "checkpoint.json"
	checkpointModel    = "model.bin"
)

// Checkpoint represents a saved training state. Non-finite floats are stored
// as JSON null and read back as NaN.
type Checkpoint struct {
	// Metadata
	Version      string    `json:"version"`
	Timestamp    time.Time `json:"timestamp"`
	Epoch        int       `json:"epoch"`
	Step         int64     `json:"step"`
	Loss         float64   `json:"loss"`
	LearningRate float64   `json:"learning_rate"`

	// Training config
	Config *Config `json:"training_config"`

	// Model parameters, stored next to the metadata
	ModelPath       string `json:"model_path"`
	ModelChecksum   string `json:"model_checksum"`
	TotalParams     int    `json:"total_params"`
	TrainableParams int    `json:"trainable_params"`

	Metrics *Metrics `json:"metrics"`
}

// MarshalJSON encodes the checkpoint with non-finite floats as null
func (c Checkpoint) MarshalJSON() ([]byte, error) {
	type plain Checkpoint
	return json.Marshal(struct {
		plain
		Loss         *float64 `json:"loss"`
		LearningRate *float64 `json:"learning_rate"`
	}{
		plain:        plain(c),
		Loss:         nullable(c.Loss),
		LearningRate: nullable(c.LearningRate),
	})
}

// UnmarshalJSON decodes a checkpoint, reading null floats as NaN
func (c *Checkpoint) UnmarshalJSON(data []byte) error {
	type plain Checkpoint
	aux := struct {
		*plain
		Loss         *float64 `json:"loss"`
		LearningRate *float64 `json:"learning_rate"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.Loss = fromNullable(aux.Loss)
	c.LearningRate = fromNullable(aux.LearningRate)
	return nil
}

type metricsJSON struct {
	Losses        []*float64 `json:"losses"`
	GradientNorms []*float64 `json:"gradient_norms"`
	LearningRates []*float64 `json:"learning_rates"`
}

// MarshalJSON encodes the metrics with non-finite values as null
func (m Metrics) MarshalJSON() ([]byte, error) {
	return json.Marshal(metricsJSON{
		Losses:        nullableSlice(m.Losses),
		GradientNorms: nullableSlice(m.GradientNorms),
		LearningRates: nullableSlice(m.LearningRates),
	})
}

// UnmarshalJSON decodes metrics, reading null values as NaN
func (m *Metrics) UnmarshalJSON(data []byte) error {
	var aux metricsJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	m.Losses = fromNullableSlice(aux.Losses)
	m.GradientNorms = fromNullableSlice(aux.GradientNorms)
	m.LearningRates = fromNullableSlice(aux.LearningRates)
	return nil
}

// SaveCheckpoint writes the trainer's parameters and progress into dir.
// Both files are encoded in memory first and then renamed into place, so a
// failed save leaves any earlier checkpoint in dir intact.
func SaveCheckpoint(dir string, t *Trainer) (*Checkpoint, error) {
	params := t.Optimizer.Parameters()
	checkpoint := &Checkpoint{
		Version:      checkpointVersion,
		Timestamp:    time.Now(),
		Epoch:        t.epoch,
		Step:         t.Optimizer.GetStepCount(),
		Loss:         t.Metrics.LastLoss(),
		LearningRate: t.Optimizer.GetLearningRate(),
		Config:       t.Config,
		ModelPath:    checkpointModel,
		TotalParams:  len(params),
		Metrics:      t.Metrics,
	}
	for _, p := range params {
		if p.Trainable() {
			checkpoint.TrainableParams++
		}
	}

	var model bytes.Buffer
	if err := writeParameters(t, &model); err != nil {
		return nil, errors.Wrap(err, "failed to encode model")
	}
	sum := sha256.Sum256(model.Bytes())
	checkpoint.ModelChecksum = hex.EncodeToString(sum[:])

	metadata, err := json.MarshalIndent(checkpoint, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode checkpoint metadata")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create checkpoint directory")
	}
	if err := writeFileAtomic(filepath.Join(dir, checkpointModel), model.Bytes()); err != nil {
		return nil, errors.Wrap(err, "failed to save model")
	}
	if err := writeFileAtomic(filepath.Join(dir, checkpointMetadata), append(metadata, '\n')); err != nil {
		return nil, errors.Wrap(err, "failed to save checkpoint metadata")
	}
	return checkpoint, nil
}

// LoadCheckpoint restores parameters, learning rate, metrics and the epoch
// counter saved in dir into t. The model must have the same shape as the one
// that was saved.
func LoadCheckpoint(dir string, t *Trainer) (*Checkpoint, error) {
	file, err := os.Open(filepath.Join(dir, checkpointMetadata))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open checkpoint metadata file")
	}
	defer file.Close()

	var checkpoint Checkpoint
	if err := json.NewDecoder(file).Decode(&checkpoint); err != nil {
		return nil, errors.Wrap(err, "failed to decode checkpoint metadata")
	}
	if checkpoint.Version != checkpointVersion {
		return nil, errors.Errorf("unsupported checkpoint version %q", checkpoint.Version)
	}
	if !(checkpoint.LearningRate >= 0) || math.IsInf(checkpoint.LearningRate, 0) {
		return nil, errors.Errorf("checkpoint has invalid learning rate %g", checkpoint.LearningRate)
	}

	modelPath := filepath.Join(dir, checkpoint.ModelPath)
	checksum, err := fileChecksum(modelPath)
	if err != nil {
		return nil, err
	}
	if checksum != checkpoint.ModelChecksum {
		return nil, errors.Errorf("checkpoint integrity check failed: model checksum %s, expected %s", checksum, checkpoint.ModelChecksum)
	}
	if err := loadParameters(t, modelPath); err != nil {
		return nil, errors.Wrap(err, "failed to load model")
	}

	t.Optimizer.SetLearningRate(checkpoint.LearningRate)
	t.epoch = checkpoint.Epoch
	if checkpoint.Metrics != nil {
		t.Metrics = checkpoint.Metrics
	}
	return &checkpoint, nil
}

// writeParameters writes the parameter count, then each value and its
// trainable flag, little endian.
func writeParameters(t *Trainer, w io.Writer) error {
	params := t.Optimizer.Parameters()
	if err := binary.Write(w, binary.LittleEndian, int32(len(params))); err != nil {
		return errors.Wrap(err, "failed to write parameter count")
	}
	for i, p := range params {
		if err := binary.Write(w, binary.LittleEndian, p.Data()); err != nil {
			return errors.Wrapf(err, "failed to write parameter %d", i)
		}
		trainable := int32(0)
		if p.Trainable() {
			trainable = 1
		}
		if err := binary.Write(w, binary.LittleEndian, trainable); err != nil {
			return errors.Wrapf(err, "failed to write trainable flag for parameter %d", i)
		}
	}
	return nil
}

func loadParameters(t *Trainer, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "failed to open model file")
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	var count int32
	if err := binary.Read(reader, binary.LittleEndian, &count); err != nil {
		return errors.Wrap(err, "failed to read parameter count")
	}
	params := t.Optimizer.Parameters()
	if int(count) != len(params) {
		return errors.Errorf("parameter count mismatch: expected %d, got %d", len(params), count)
	}

	values := make([]float64, len(params))
	for i, p := range params {
		if err := binary.Read(reader, binary.LittleEndian, &values[i]); err != nil {
			return errors.Wrapf(err, "failed to read parameter %d", i)
		}
		var trainable int32
		if err := binary.Read(reader, binary.LittleEndian, &trainable); err != nil {
			return errors.Wrapf(err, "failed to read trainable flag for parameter %d", i)
		}
		if (trainable != 0) != p.Trainable() {
			return errors.Errorf("trainable flag mismatch for parameter %d", i)
		}
	}
	for i, p := range params {
		p.SetData(values[i])
	}
	return nil
}

// writeFileAtomic writes data to a temporary file in the same directory and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "failed to create temporary file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "failed to write %s", tmp.Name())
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "failed to sync %s", tmp.Name())
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "failed to close %s", tmp.Name())
	}
	return errors.Wrapf(os.Rename(tmp.Name(), path), "failed to move %s into place", path)
}

func fileChecksum(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "failed to open file for checksum")
	}
	defer file.Close()

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", errors.Wrap(err, "failed to checksum file")
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func fromNullable(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

func nullableSlice(vs []float64) []*float64 {
	if vs == nil {
		return nil
	}
	out := make([]*float64, len(vs))
	for i, v := range vs {
		out[i] = nullable(v)
	}
	return out
}

func fromNullableSlice(ps []*float64) []float64 {
	if ps == nil {
		return nil
	}
	out := make([]float64, len(ps))
	for i, p := range ps {
		out[i] = fromNullable(p)
	}
	return out
}
