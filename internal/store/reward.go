package store

import (
	"database/sql"
	"fmt"
	"sort"

	"chorewheel/internal/model"
)

type RewardStore struct {
	db *sql.DB
}

func NewRewardStore(db *sql.DB) *RewardStore {
	return &RewardStore{db: db}
}

func scanReward(scanner interface{ Scan(...any) error }) (*model.Reward, error) {
	var r model.Reward
	var active int

	err := scanner.Scan(&r.ID, &r.HouseholdID, &r.Title, &r.Description, &r.PointCost, &active, &r.CreatedAt)
	if err != nil {
		return nil, err
	}

	r.Active = active != 0
	return &r, nil
}

const rewardCols = `id, household_id, title, description, point_cost, active, created_at`

func (s *RewardStore) Create(householdID int64, title, description string, pointCost int) (*model.Reward, error) {
	result, err := s.db.Exec(
		`INSERT INTO rewards (household_id, title, description, point_cost) VALUES (?, ?, ?, ?)`,
		householdID, title, description, pointCost,
	)
	if err != nil {
		return nil, fmt.Errorf("insert reward: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *RewardStore) GetByID(id int64) (*model.Reward, error) {
	row := s.db.QueryRow(`SELECT `+rewardCols+` FROM rewards WHERE id = ?`, id)
	r, err := scanReward(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reward: %w", err)
	}
	return r, nil
}

func (s *RewardStore) ListByHousehold(householdID int64) ([]model.Reward, error) {
	rows, err := s.db.Query(
		`SELECT `+rewardCols+` FROM rewards WHERE household_id = ? ORDER BY active DESC, title ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	defer rows.Close()

	var rewards []model.Reward
	for rows.Next() {
		r, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		rewards = append(rewards, *r)
	}
	return rewards, rows.Err()
}

func (s *RewardStore) Update(id int64, title, description string, pointCost int, active bool) (*model.Reward, error) {
	var a int
	if active {
		a = 1
	}

	_, err := s.db.Exec(
		`UPDATE rewards SET title = ?, description = ?, point_cost = ?, active = ? WHERE id = ?`,
		title, description, pointCost, a, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update reward: %w", err)
	}
	return s.GetByID(id)
}

func (s *RewardStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM rewards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete reward: %w", err)
	}
	return nil
}

// --- Redemption methods ---

func scanRedemption(scanner interface{ Scan(...any) error }) (*model.RewardRedemption, error) {
	var r model.RewardRedemption
	var childID sql.NullInt64

	err := scanner.Scan(&r.ID, &r.RewardID, &childID, &r.PointsSpent, &r.RedeemedAt)
	if err != nil {
		return nil, err
	}

	if childID.Valid {
		r.ChildID = &childID.Int64
	}
	return &r, nil
}

const redemptionCols = `id, reward_id, child_id, points_spent, redeemed_at`

func (s *RewardStore) Redeem(rewardID int64, childID *int64, pointsSpent int) (*model.RewardRedemption, error) {
	var child sql.NullInt64
	if childID != nil {
		child = sql.NullInt64{Int64: *childID, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO reward_redemptions (reward_id, child_id, points_spent) VALUES (?, ?, ?)`,
		rewardID, child, pointsSpent,
	)
	if err != nil {
		return nil, fmt.Errorf("insert redemption: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+redemptionCols+` FROM reward_redemptions WHERE id = ?`, id)
	return scanRedemption(row)
}

// --- Point balance methods ---

// GetPointBalance computes a child's balance: points from completed
// assignments minus points spent on redemptions.
func (s *RewardStore) GetPointBalance(childID int64) (*model.PointBalance, error) {
	var earned sql.NullInt64
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(points), 0) FROM assignments WHERE child_id = ? AND status = ?`,
		childID, model.AssignmentCompleted,
	).Scan(&earned)
	if err != nil {
		return nil, fmt.Errorf("sum points earned: %w", err)
	}

	var spent sql.NullInt64
	err = s.db.QueryRow(
		`SELECT COALESCE(SUM(points_spent), 0) FROM reward_redemptions WHERE child_id = ?`,
		childID,
	).Scan(&spent)
	if err != nil {
		return nil, fmt.Errorf("sum points spent: %w", err)
	}

	var name string
	err = s.db.QueryRow(`SELECT name FROM children WHERE id = ?`, childID).Scan(&name)
	if err == sql.ErrNoRows {
		name = "Unknown"
	} else if err != nil {
		return nil, fmt.Errorf("get child name: %w", err)
	}

	totalEarned := int(earned.Int64)
	totalSpent := int(spent.Int64)

	return &model.PointBalance{
		ChildID:     childID,
		ChildName:   name,
		TotalEarned: totalEarned,
		TotalSpent:  totalSpent,
		Balance:     totalEarned - totalSpent,
	}, nil
}

// GetLeaderboard returns point balances for all of a household's children,
// highest balance first.
func (s *RewardStore) GetLeaderboard(householdID int64) ([]model.PointBalance, error) {
	rows, err := s.db.Query(
		`SELECT id FROM children WHERE household_id = ? ORDER BY sort_order ASC, name ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan child id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate children: %w", err)
	}

	var balances []model.PointBalance
	for _, id := range ids {
		b, err := s.GetPointBalance(id)
		if err != nil {
			return nil, err
		}
		balances = append(balances, *b)
	}

	sort.SliceStable(balances, func(i, j int) bool {
		return balances[i].Balance > balances[j].Balance
	})
	return balances, nil
}
