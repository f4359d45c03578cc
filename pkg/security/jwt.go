package security

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/lumehome/lumelink/pkg/config"
)

// JWTConfig JWT 配置
type JWTConfig struct {
	// 签名密钥（用于 HS256 等对称算法）
	SecretKey string `mapstructure:"secret_key" json:"secret_key"`

	// 公钥文件路径（用于 RS256 等非对称算法验证）
	PublicKeyFile string `mapstructure:"public_key_file" json:"public_key_file"`

	// 私钥文件路径（用于 RS256 等非对称算法签名）
	PrivateKeyFile string `mapstructure:"private_key_file" json:"private_key_file"`

	// 签名算法（默认 HS256）
	// 支持：HS256, HS384, HS512, RS256, RS384, RS512
	Algorithm string `mapstructure:"algorithm" json:"algorithm"`

	// Token 过期时间（默认 24 小时）
	ExpiresIn time.Duration `mapstructure:"expires_in" json:"expires_in"`

	// 签发者
	Issuer string `mapstructure:"issuer" json:"issuer"`
}

// Claims 通用 JWT Claims
type Claims struct {
	jwt.RegisteredClaims

	// Payload 自定义载荷，完全由调用方决定内容
	Payload map[string]any `json:"payload,omitempty"`
}

// Unmarshal 将整个 Payload 解析到结构体
func (c *Claims) Unmarshal(v any) error {
	if c.Payload == nil {
		return nil
	}
	return mapstructure.Decode(c.Payload, v)
}

// DefaultJWTConfig 返回默认 JWT 配置（最小可用配置）
func DefaultJWTConfig() *JWTConfig {
	return &JWTConfig{
		Algorithm: "HS256",
		ExpiresIn: 24 * time.Hour,
	}
}

// JWTManager JWT 管理器
type JWTManager struct {
	config     *JWTConfig
	publicKey  any
	privateKey any
}

// NewJWTManager 创建 JWT 管理器
func NewJWTManager(cfg *JWTConfig) (*JWTManager, error) {
	newCfg, err := config.MergeConfig(DefaultJWTConfig(), cfg)
	if err != nil {
		return nil, err
	}

	m := &JWTManager{config: newCfg}

	if err := m.loadKeys(); err != nil {
		return nil, err
	}

	return m, nil
}

// loadKeys 加载签名密钥
func (m *JWTManager) loadKeys() error {
	alg := strings.ToUpper(m.config.Algorithm)

	switch {
	case strings.HasPrefix(alg, "HS"):
		// HMAC 算法，使用对称密钥
		if m.config.SecretKey == "" {
			return ErrSecretKeyEmpty
		}

	case strings.HasPrefix(alg, "RS"):
		if m.config.PublicKeyFile != "" {
			data, err := os.ReadFile(m.config.PublicKeyFile)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrPublicKeyLoad, err)
			}
			pubKey, err := jwt.ParseRSAPublicKeyFromPEM(data)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrPublicKeyLoad, err)
			}
			m.publicKey = pubKey
		}

		if m.config.PrivateKeyFile != "" {
			data, err := os.ReadFile(m.config.PrivateKeyFile)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrPrivateKeyLoad, err)
			}
			privKey, err := jwt.ParseRSAPrivateKeyFromPEM(data)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrPrivateKeyLoad, err)
			}
			m.privateKey = privKey
		}
	}

	return nil
}

// GenerateToken 生成 Token
func (m *JWTManager) GenerateToken(claims *Claims) (string, error) {
	now := time.Now()

	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.NotBefore = jwt.NewNumericDate(now)
	if claims.ExpiresAt == nil {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(m.config.ExpiresIn))
	}
	if m.config.Issuer != "" && claims.Issuer == "" {
		claims.Issuer = m.config.Issuer
	}

	token := jwt.NewWithClaims(m.getSigningMethod(), claims)

	if strings.HasPrefix(strings.ToUpper(m.config.Algorithm), "RS") {
		return token.SignedString(m.privateKey)
	}
	return token.SignedString([]byte(m.config.SecretKey))
}

// ValidateToken 验证 Token
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		// 验证算法，防止算法替换攻击
		if token.Method.Alg() != m.config.Algorithm {
			return nil, ErrAlgorithmMismatch
		}
		if strings.HasPrefix(strings.ToUpper(m.config.Algorithm), "RS") {
			return m.publicKey, nil
		}
		return []byte(m.config.SecretKey), nil
	})

	if err != nil {
		return nil, m.wrapError(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// getSigningMethod 获取签名方法
func (m *JWTManager) getSigningMethod() jwt.SigningMethod {
	switch strings.ToUpper(m.config.Algorithm) {
	case "HS384":
		return jwt.SigningMethodHS384
	case "HS512":
		return jwt.SigningMethodHS512
	case "RS256":
		return jwt.SigningMethodRS256
	case "RS384":
		return jwt.SigningMethodRS384
	case "RS512":
		return jwt.SigningMethodRS512
	default:
		return jwt.SigningMethodHS256
	}
}

// wrapError 将 jwt 库错误映射为本包的哨兵错误
func (m *JWTManager) wrapError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrTokenNotValidYet
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	case errors.Is(err, jwt.ErrSignatureInvalid):
		return ErrSignatureInvalid
	default:
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
}

// GetConfig 获取配置
func (m *JWTManager) GetConfig() *JWTConfig {
	return m.config
}
