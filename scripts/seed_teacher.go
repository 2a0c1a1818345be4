// 初始化教师账号脚本
//
// 首次部署后数据库里没有任何账号，教师账号只能由已有教师创建，
// 该脚本用于打破这个循环，直接向数据库写入一个教师账号。
//
// 用法: go run scripts/seed_teacher.go -name "张老师" -email teacher@example.com -password secret123
package main

import (
	"errors"
	"flag"
	"ielts_exam_backend/internal/config"
	"ielts_exam_backend/internal/model"
	"ielts_exam_backend/internal/repository"
	"ielts_exam_backend/pkg/database"
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

func main() {
	name := flag.String("name", "", "教师姓名")
	email := flag.String("email", "", "登录邮箱")
	password := flag.String("password", "", "初始密码, 至少 6 位")
	flag.Parse()

	if *name == "" || *email == "" || len(*password) < 6 {
		flag.Usage()
		os.Exit(1)
	}

	data, err := os.ReadFile("configs/config.yaml")
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	db, err := database.InitDB(&cfg.Database, true)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	users := repository.NewUserRepository(db)

	if _, err := users.FindByEmail(*email); err == nil {
		log.Fatalf("邮箱 %s 已被注册", *email)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Fatalf("查询账号失败: %v", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("密码加密失败: %v", err)
	}

	user := &model.User{
		Name:     *name,
		Email:    *email,
		Password: string(hashed),
		Role:     model.Teacher,
	}
	if err := users.Create(user); err != nil {
		log.Fatalf("创建教师账号失败: %v", err)
	}

	log.Printf("教师账号已创建: %s (id=%d)", *email, user.ID)
}
