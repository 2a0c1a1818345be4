package database

import (
	"fmt"
	"ielts_exam_backend/internal/config"
	"ielts_exam_backend/internal/model"
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig, migrate bool) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	if !migrate {
		return db, nil
	}

	if err := db.AutoMigrate(
		&model.User{},
		&model.StudentTest{},
	); err != nil {
		return nil, err
	}

	// Each test kind owns its own table set; the row shapes are shared, so
	// migrate the same structs once per kind table.
	for _, kind := range model.AllTestKinds() {
		ts := kind.Tables()

		if err := db.Table(ts.Tests).AutoMigrate(&model.Test{}); err != nil {
			return nil, err
		}
		if ts.FixedTasks {
			continue
		}

		if err := db.Table(ts.Sections).AutoMigrate(&model.Section{}); err != nil {
			return nil, err
		}
		if err := db.Table(ts.Questions).AutoMigrate(&model.Question{}); err != nil {
			return nil, err
		}
		if err := db.Table(ts.Answers).AutoMigrate(&model.Answer{}); err != nil {
			return nil, err
		}
		if err := db.Table(ts.Options).AutoMigrate(&model.Option{}); err != nil {
			return nil, err
		}
		if err := db.Table(ts.MatchingItems).AutoMigrate(&model.MatchingItem{}); err != nil {
			return nil, err
		}
		if err := db.Table(ts.MatchingOptions).AutoMigrate(&model.MatchingOption{}); err != nil {
			return nil, err
		}

		// Replace-all updates delete sections only and rely on the store
		// cascading to questions and their children.
		if err := addCascades(db, ts); err != nil {
			return nil, err
		}
	}

	log.Println("Database migration completed")

	return db, nil
}

// addCascades installs ON DELETE CASCADE foreign keys for a kind's child
// tables. MySQL has no CREATE CONSTRAINT IF NOT EXISTS, so probe first.
func addCascades(db *gorm.DB, ts model.TableSet) error {
	type fk struct {
		table, name, column, parent string
	}
	fks := []fk{
		{ts.Sections, "fk_" + ts.Sections + "_test", "test_id", ts.Tests},
		{ts.Questions, "fk_" + ts.Questions + "_section", "section_id", ts.Sections},
		{ts.Answers, "fk_" + ts.Answers + "_question", "question_id", ts.Questions},
		{ts.Options, "fk_" + ts.Options + "_question", "question_id", ts.Questions},
		{ts.MatchingItems, "fk_" + ts.MatchingItems + "_question", "question_id", ts.Questions},
		{ts.MatchingOptions, "fk_" + ts.MatchingOptions + "_question", "question_id", ts.Questions},
	}

	for _, f := range fks {
		var count int64
		err := db.Raw(
			`SELECT COUNT(*) FROM information_schema.table_constraints
			 WHERE constraint_schema = DATABASE() AND table_name = ? AND constraint_name = ?`,
			f.table, f.name,
		).Scan(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		stmt := fmt.Sprintf(
			"ALTER TABLE `%s` ADD CONSTRAINT `%s` FOREIGN KEY (`%s`) REFERENCES `%s`(`id`) ON DELETE CASCADE",
			f.table, f.name, f.column, f.parent,
		)
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
