package i18n

import (
	"embed"
	"encoding/json"
	"path"

	"VidyaSync/pkg/logger"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var locales embed.FS

// 消息 ID
const (
	MsgBadRequest        = "error.bad_request"
	MsgValidation        = "error.validation"
	MsgDependencyMissing = "error.dependency_missing"
	MsgGeneration        = "error.generation"
	MsgNotFound          = "error.not_found"
	MsgRateLimited       = "error.rate_limited"
	MsgInternal          = "error.internal"
)

// I18nSupport 国际化支持结构体
type I18nSupport struct {
	bundle    *i18n.Bundle
	supported []language.Tag
	matcher   language.Matcher
}

// NewI18nSupport 初始化国际化支持，加载内嵌的全部语言文件
func NewI18nSupport(defaultLang string) (*I18nSupport, error) {
	def, err := language.Parse(defaultLang)
	if err != nil {
		return nil, err
	}
	bundle := i18n.NewBundle(def)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := locales.ReadDir("locales")
	if err != nil {
		return nil, err
	}
	supported := []language.Tag{def}
	for _, e := range entries {
		name := path.Join("locales", e.Name())
		buf, err := locales.ReadFile(name)
		if err != nil {
			return nil, err
		}
		mf, err := bundle.ParseMessageFileBytes(buf, name)
		if err != nil {
			return nil, err
		}
		if mf.Tag != def {
			supported = append(supported, mf.Tag)
		}
	}

	return &I18nSupport{
		bundle:    bundle,
		supported: supported,
		matcher:   language.NewMatcher(supported),
	}, nil
}

// Match 将 Accept-Language 或 ?lang= 的取值映射到已支持的语言
func (i *I18nSupport) Match(prefs ...string) string {
	tags := make([]language.Tag, 0, len(prefs))
	for _, p := range prefs {
		if p == "" {
			continue
		}
		parsed, _, err := language.ParseAcceptLanguage(p)
		if err != nil {
			continue
		}
		tags = append(tags, parsed...)
	}
	_, idx, _ := i.matcher.Match(tags...)
	base, _ := i.supported[idx].Base()
	return base.String()
}

// T 获取翻译文本
func (i *I18nSupport) T(languageTag, key string, templateData map[string]interface{}) string {
	localizer := i18n.NewLocalizer(i.bundle, languageTag)

	translation, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: templateData,
	})
	if err != nil {
		logger.Warn("translation missing", zap.String("key", key), zap.String("lang", languageTag), zap.Error(err))
		return key // 返回键名作为默认值
	}

	return translation
}

// TWithDefaultLang 使用默认语言获取翻译文本
func (i *I18nSupport) TWithDefaultLang(key string, templateData map[string]interface{}) string {
	return i.T(i.supported[0].String(), key, templateData)
}
