package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidaplus/clinic-booking/internal/clock"
	"github.com/vidaplus/clinic-booking/internal/db"
)

const (
	doctorCount   = 25
	scheduleWeeks = 4
)

type specialtySeed struct {
	name        string
	durationMin int
}

var specialtySeeds = []specialtySeed{
	{"Clínica Geral", 30},
	{"Cardiologia", 30},
	{"Dermatologia", 20},
	{"Ortopedia", 30},
	{"Pediatria", 30},
	{"Psiquiatria", 45},
	{"Oftalmologia", 20},
	{"Endocrinologia", 30},
	{"Neurologia", 40},
	{"Otorrinolaringologia", 20},
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	connCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.ConnectPostgres(connCtx, dsn)
	cancel()
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	ctx := context.Background()

	if err := db.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("apply schema: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	specialtyIDs, err := seedSpecialties(ctx, pool)
	if err != nil {
		log.Fatalf("seed specialties: %v", err)
	}

	doctorIDs, err := seedDoctors(ctx, pool, specialtyIDs, doctorCount)
	if err != nil {
		log.Fatalf("seed doctors: %v", err)
	}

	if err := seedSlots(ctx, pool, doctorIDs); err != nil {
		log.Fatalf("seed slots: %v", err)
	}

	log.Println("seed complete")
}

// seedSpecialties inserts the fixed specialty catalog. ON CONFLICT keeps the
// seed re-runnable against a populated database.
func seedSpecialties(ctx context.Context, pool *pgxpool.Pool) ([]uuid.UUID, error) {
	log.Printf("seeding %d specialties", len(specialtySeeds))

	ids := make([]uuid.UUID, 0, len(specialtySeeds))
	for _, sp := range specialtySeeds {
		var id uuid.UUID
		err := pool.QueryRow(ctx, `
			INSERT INTO specialties (id, name, default_duration_min, active, created_at)
			VALUES ($1, $2, $3, true, now())
			ON CONFLICT (name) DO UPDATE SET default_duration_min = EXCLUDED.default_duration_min
			RETURNING id
		`, uuid.New(), sp.name, sp.durationMin).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("insert specialty %s: %w", sp.name, err)
		}
		ids = append(ids, id)
	}

	return ids, nil
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, specialtyIDs []uuid.UUID, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d doctors", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := "Dr(a). " + gofakeit.Name()
		crm := fmt.Sprintf("CRM/SP %06d", gofakeit.Number(100000, 999999))
		email := gofakeit.Email()
		phone := gofakeit.Phone()

		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, name, crm, email, phone, active, created_at)
			VALUES ($1, $2, $3, $4, $5, true, now())
		`, id, name, crm, email, phone)
		if err != nil {
			return nil, fmt.Errorf("insert doctor %s: %w", name, err)
		}

		// One or two specialties each, so specialty searches fan out.
		picked := map[int]bool{gofakeit.Number(0, len(specialtyIDs)-1): true}
		if gofakeit.Bool() {
			picked[gofakeit.Number(0, len(specialtyIDs)-1)] = true
		}
		for idx := range picked {
			_, err := tx.Exec(ctx, `
				INSERT INTO doctor_specialties (doctor_id, specialty_id)
				VALUES ($1, $2)
				ON CONFLICT DO NOTHING
			`, id, specialtyIDs[idx])
			if err != nil {
				return nil, fmt.Errorf("link doctor specialty: %w", err)
			}
		}

		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("doctors seeded")
	return ids, nil
}

// seedSlots gives every doctor a Monday-Friday schedule of 30-minute slots,
// mornings and afternoons, for the coming weeks.
func seedSlots(ctx context.Context, pool *pgxpool.Pool, doctorIDs []uuid.UUID) error {
	start := clock.DateOf(time.Now().In(clock.Zone))
	end := start.AddDate(0, 0, scheduleWeeks*7)

	morningStart, _ := clock.ParseTimeOfDay("08:00")
	morningEnd, _ := clock.ParseTimeOfDay("12:00")
	afternoonStart, _ := clock.ParseTimeOfDay("14:00")
	afternoonEnd, _ := clock.ParseTimeOfDay("18:00")

	const interval = clock.TimeOfDay(30)

	total := 0
	for _, doctorID := range doctorIDs {
		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for day := start; day.Before(end); day = day.AddDate(0, 0, 1) {
			if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
				continue
			}

			for _, window := range [][2]clock.TimeOfDay{
				{morningStart, morningEnd},
				{afternoonStart, afternoonEnd},
			} {
				for t := window[0]; t+interval <= window[1]; t += interval {
					modality := "presencial"
					if gofakeit.Number(0, 4) == 0 {
						modality = "teleconsulta"
					}

					_, err := tx.Exec(ctx, `
						INSERT INTO availability_slots (id, doctor_id, slot_date, start_min, end_min, modality, active, created_at)
						VALUES ($1, $2, $3, $4, $5, $6, true, now())
						ON CONFLICT (doctor_id, slot_date, start_min) DO NOTHING
					`, uuid.New(), doctorID, day, int(t), int(t+interval), modality)
					if err != nil {
						_ = tx.Rollback(ctx)
						return fmt.Errorf("insert slot: %w", err)
					}
					total++
				}
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}
	}

	log.Printf("slots seeded: %d", total)
	return nil
}
