package cmd

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:     "edusloth",
	Short:   "EduSloth 学习助手后端",
	Long:    "EduSloth 后端服务：文档/音频上传、语音转写、AI 摘要/闪卡/测验/思维导图生成与学习提醒",
	Version: "1.0.0",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

// initConfig 读取配置文件和环境变量（如果设置）
func initConfig() {
	// 先加载 .env（容器部署时常用），不存在则忽略
	_ = godotenv.Load()

	// 添加配置文件搜索路径
	viper.AddConfigPath("./data")
	viper.AddConfigPath(".")
	viper.SetConfigType("yaml")
	viper.SetConfigName("config")

	viper.SetEnvPrefix("edusloth")
	viper.AutomaticEnv() // 读取匹配的环境变量

	// 如果找到配置文件，读取它；找不到时依赖默认值和环境变量
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Println("配置文件读取失败:", err)
			os.Exit(1)
		}
	}
}
