// checkpoint creates CheckpointIO which saves and restores significance
// counts of finished chromosomes, so that an interrupted simulation
// does not test them again.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/op/go-logging"

	bolt "go.etcd.io/bbolt"
)

// log is the global logging variable.
var log = logging.MustGetLogger("checkpoint")

// MAIN is the bucket name for all the checkpoints.
var MAIN = []byte("main")

// ChrCounts stores per gene significance counts of one chromosome by
// bin label.
type ChrCounts struct {
	Chr    int              `json:"chr"`
	Counts map[string][]int `json:"counts"`
}

// CheckpointIO saves and loads chromosome checkpoints of one run
// configuration.
type CheckpointIO struct {
	db  *bolt.DB
	key []byte
}

// Open opens (or creates) a checkpoint database.
func Open(path string) (*bolt.DB, error) {
	return bolt.Open(path, 0666, &bolt.Options{Timeout: time.Second})
}

// Key builds a run key from the values identifying a run.
func Key(parts ...interface{}) []byte {
	s := make([]string, len(parts))
	for i, p := range parts {
		s[i] = fmt.Sprint(p)
	}
	return []byte(strings.Join(s, "\t"))
}

// NewCheckpointIO creates a new CheckpointIO. A nil db disables
// checkpointing.
func NewCheckpointIO(db *bolt.DB, key []byte) *CheckpointIO {
	return &CheckpointIO{db: db, key: key}
}

func (s *CheckpointIO) chrKey(chr int) []byte {
	k := make([]byte, 0, len(s.key)+8)
	k = append(k, s.key...)
	k = append(k, "\tchr"...)
	return strconv.AppendInt(k, int64(chr), 10)
}

// Save saves counts of a chromosome.
func (s *CheckpointIO) Save(data *ChrCounts) error {
	dataB, err := json.Marshal(data)
	if err != nil {
		log.Error("Error serializing checkpoint", err)
		return err
	}
	err = SaveData(s.db, s.chrKey(data.Chr), dataB)
	if err != nil {
		log.Error("Error saving checkpoint", err)
	}
	return err
}

// Load returns saved counts of a chromosome, or nil if there are none.
func (s *CheckpointIO) Load(chr int) (*ChrCounts, error) {
	var data *ChrCounts

	b, err := LoadData(s.db, s.chrKey(chr))

	if err != nil || b == nil {
		return nil, err
	}

	err = json.Unmarshal(b, &data)

	if err != nil {
		return nil, err
	}

	if data == nil || data.Chr != chr {
		return nil, nil
	}

	log.Noticef("Found checkpoint for chr%d", chr)

	return data, nil
}

// SaveData saves values in bolt database.
func SaveData(db *bolt.DB, key []byte, data []byte) error {
	if db == nil {
		return nil
	}
	err := db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(MAIN)
		if err != nil {
			return err
		}

		err = b.Put(key, data)
		return err
	})
	return err
}

// LoadData loads data from bolt database.
func LoadData(db *bolt.DB, key []byte) ([]byte, error) {
	var data []byte
	if db == nil {
		return nil, nil
	}
	err := db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(MAIN)
		if b == nil {
			return nil
		}

		v := b.Get(key)
		if v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}
