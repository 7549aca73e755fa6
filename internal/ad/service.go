package ad

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-avrex/internal/ad/entity"
	adrepo "github.com/ovaphlow/pitchfork/service-avrex/internal/ad/repo"
	"github.com/ovaphlow/pitchfork/service-avrex/internal/balance"
)

// Cost is the fixed price of one ad in task earnings.
const Cost int64 = 7000

var (
	ErrInsufficientBalance = balance.ErrInsufficientBalance
	ErrNoImageProvided     = errors.New("no image provided")
)

// CSVHeader is the first row of ExportCSV.
var CSVHeader = []string{"ID", "User Email", "Image URL", "Description", "Cost"}

// Upload is an image payload taken from a multipart form.
type Upload struct {
	Filename string
	Body     io.Reader
}

type Service struct {
	db      *sqlx.DB
	repo    *adrepo.AdRepo
	ledger  *balance.Ledger
	storage *Storage
}

func NewService(db *sqlx.DB, r *adrepo.AdRepo, ledger *balance.Ledger, storage *Storage) *Service {
	if r == nil {
		r = adrepo.NewAdRepo(db)
	}
	if ledger == nil {
		ledger = balance.NewLedger(db, nil)
	}
	return &Service{db: db, repo: r, ledger: ledger, storage: storage}
}

func (s *Service) EnsureTable(ctx context.Context) error { return s.repo.EnsureTable(ctx) }

// Submit charges Cost to email's task earnings and records the ad. The balance
// check comes before the image checks; the charge and the insert commit together,
// and the stored image is removed if they do not. Non-image files fail with
// ErrUnsupportedImage.
func (s *Service) Submit(ctx context.Context, email string, up *Upload, description string) (*entity.Ad, error) {
	b, err := s.ledger.GetOrCreate(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("load balance: %w", err)
	}
	if b.TaskEarnings < Cost {
		return nil, ErrInsufficientBalance
	}
	if up == nil || up.Body == nil || up.Filename == "" {
		return nil, ErrNoImageProvided
	}

	url, err := s.storage.Save(up.Filename, up.Body)
	if err != nil {
		return nil, err
	}
	ad := &entity.Ad{UserEmail: email, ImageURL: url, Description: description, Cost: Cost}
	if err := s.charge(ctx, ad); err != nil {
		_ = s.storage.Remove(url)
		return nil, err
	}
	return ad, nil
}

func (s *Service) charge(ctx context.Context, ad *entity.Ad) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	// a concurrent submission may have spent the balance since the check above
	if err := s.ledger.WithTx(tx).Deduct(ctx, ad.UserEmail, ad.Cost); err != nil {
		return err
	}
	if _, err := s.repo.WithTx(tx).Create(ctx, ad); err != nil {
		return fmt.Errorf("create ad: %w", err)
	}
	return tx.Commit()
}

// ListAll returns every ad, most recent first.
func (s *Service) ListAll(ctx context.Context) ([]entity.Ad, error) {
	return s.repo.ListNewestFirst(ctx)
}

// ExportCSV writes a header row and one row per ad in insertion order.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer) error {
	ads, err := s.repo.ListInsertOrder(ctx)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, a := range ads {
		row := []string{
			strconv.FormatInt(a.ID, 10),
			a.UserEmail,
			a.ImageURL,
			a.Description,
			strconv.FormatInt(a.Cost, 10),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Delete removes the ad and its image. Unknown ids are a no-op and a missing
// image file is ignored.
func (s *Service) Delete(ctx context.Context, id int64) error {
	ad, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}
	_ = s.storage.Remove(ad.ImageURL)
	_, err = s.repo.Delete(ctx, id)
	return err
}
