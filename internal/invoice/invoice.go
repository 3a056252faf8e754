package invoice

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"

	"tradepos-backend/internal/models"

	"github.com/op/go-logging"
	"gorm.io/gorm"
)

var log = logging.MustGetLogger("invoice")

const (
	prefix         = "INV-"
	fallbackPrefix = "INV-FALLBACK-"
)

var (
	formatRe   = regexp.MustCompile(`^INV-(\d{8})-(\d{4,})-([0-9A-F]{4})$`)
	fallbackRe = regexp.MustCompile(`^INV-FALLBACK-\d{8}-\d{4}$`)
	// trailing digits of the sequence part of a stored number
	seqRe = regexp.MustCompile(`^INV-\d{8}-(\d+)-`)
)

// Checksum is the low 16 bits of a position-weighted character code sum,
// as four upper-case hex digits.
func Checksum(s string) string {
	var sum uint32
	for i, ch := range []byte(s) {
		sum += uint32(i+1) * uint32(ch)
	}
	return fmt.Sprintf("%04X", sum&0xFFFF)
}

// Format builds INV-YYYYMMDD-SSSS-CCCC.
func Format(date time.Time, seq int, salt string) string {
	day := date.Format("20060102")
	seqStr := fmt.Sprintf("%04d", seq)
	return prefix + day + "-" + seqStr + "-" + Checksum(day+seqStr+salt)
}

// Parts of a regular invoice number.
type Parts struct {
	Date     time.Time
	Sequence int
	Checksum string
}

func Parse(number string) (*Parts, error) {
	m := formatRe.FindStringSubmatch(number)
	if m == nil {
		return nil, fmt.Errorf("invalid invoice number %q", number)
	}
	date, err := time.ParseInLocation("20060102", m[1], time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid invoice date %q", m[1])
	}
	seq, _ := strconv.Atoi(m[2])
	return &Parts{Date: date, Sequence: seq, Checksum: m[3]}, nil
}

// Validate checks the shape of a number. The salt is not stored, so the
// checksum itself cannot be recomputed here.
func Validate(number string) bool {
	return formatRe.MatchString(number)
}

func IsFallback(number string) bool {
	return fallbackRe.MatchString(number)
}

// Fallback gives a timestamp-based number when sequence allocation is unavailable.
func Fallback(now time.Time) string {
	ms := strconv.FormatInt(now.UnixMilli(), 10)
	if len(ms) > 8 {
		ms = ms[len(ms)-8:]
	}
	return fallbackPrefix + ms + "-" + randomDigits(4)
}

func randomDigits(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		v, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteByte('0')
			continue
		}
		b.WriteString(v.String())
	}
	return b.String()
}

func period(t time.Time) string { return t.Format("200601") }

// HighestSequence returns the greatest sequence used in the month of t (0
// when the month has none). Sequences are compared as numbers since they
// widen past four digits and no longer sort as strings.
func HighestSequence(db *gorm.DB, t time.Time) (int, error) {
	month := t.Format("200601")
	lo := prefix + month + "01"
	hi := prefix + month + "99~"

	var numbers []string
	err := db.Model(&models.Sale{}).
		Where("invoice_number >= ? AND invoice_number < ?", lo, hi).
		Pluck("invoice_number", &numbers).Error
	if err != nil {
		return 0, err
	}
	highest := 0
	for _, n := range numbers {
		m := seqRe.FindStringSubmatch(n)
		if m == nil {
			return 0, fmt.Errorf("unreadable invoice number %q", n)
		}
		seq, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, err
		}
		if seq > highest {
			highest = seq
		}
	}
	return highest, nil
}

// NextSequence allocates the next sequence of the month inside tx. Callers
// must run it in the same transaction that stores the sale so the counter row
// lock serializes concurrent checkouts.
func NextSequence(tx *gorm.DB, now time.Time) (int, error) {
	p := period(now)

	res := tx.Model(&models.InvoiceCounter{}).
		Where("period = ?", p).
		Updates(map[string]any{
			"last_seq":   gorm.Expr("last_seq + 1"),
			"updated_at": now,
		})
	if res.Error != nil {
		return 0, res.Error
	}

	if res.RowsAffected == 0 {
		seed, err := HighestSequence(tx, now)
		if err != nil {
			return 0, err
		}
		counter := models.InvoiceCounter{Period: p, LastSeq: seed + 1, UpdatedAt: now}
		if err := tx.Create(&counter).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return 0, fmt.Errorf("invoice counter for %s created concurrently, retry: %w", p, err)
			}
			return 0, err
		}
		return counter.LastSeq, nil
	}

	// the UPDATE above already holds the row lock until commit
	var counter models.InvoiceCounter
	if err := tx.Where("period = ?", p).Take(&counter).Error; err != nil {
		return 0, err
	}
	return counter.LastSeq, nil
}

// Generate allocates and formats the next invoice number.
func Generate(tx *gorm.DB, now time.Time) (string, error) {
	seq, err := NextSequence(tx, now)
	if err != nil {
		return "", err
	}
	return Format(now, seq, randomDigits(4)), nil
}

// Peek returns the number the next sale would most likely get, without
// allocating it. Errors degrade to a fallback number.
func Peek(db *gorm.DB, now time.Time) string {
	var counter models.InvoiceCounter
	err := db.Where("period = ?", period(now)).Limit(1).Find(&counter).Error
	if err != nil {
		log.Warningf("invoice counter read failed, using fallback: %v", err)
		return Fallback(now)
	}
	seq := counter.LastSeq
	if counter.Period == "" {
		seq, err = HighestSequence(db, now)
		if err != nil {
			log.Warningf("invoice sequence scan failed, using fallback: %v", err)
			return Fallback(now)
		}
	}
	return Format(now, seq+1, randomDigits(4))
}
