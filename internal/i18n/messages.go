package i18n

var messagesZH = map[string]string{
	"error.bad_request":              "请求参数错误",
	"error.unauthorized":             "未登录或登录已过期",
	"error.forbidden":                "无权访问",
	"error.not_found":                "资源不存在",
	"error.internal":                 "服务内部错误",
	"error.too_many_requests":        "请求过于频繁，请稍后再试",
	"error.too_many_requests_retry":  "请求过于频繁，请 %d 秒后再试",
	"error.admin_id_invalid":         "管理员标识无效",
	"error.admin_id_type_invalid":    "管理员标识类型错误",
	"error.invalid_credentials":      "用户名或密码错误",
	"error.login_failed":             "登录失败",
	"error.admin_disabled":           "管理员已停用",
	"error.captcha_required":         "请填写验证码",
	"error.captcha_invalid":          "验证码错误或已过期",
	"error.captcha_generate_failed":  "验证码生成失败",
	"error.authz_unavailable":        "权限服务不可用",
	"error.validation":               "参数校验失败",
	"error.conflict":                 "操作冲突",
	"error.policy":                   "当前状态不允许该操作",
	"error.resource_unavailable":     "服务暂时不可用，请稍后重试",
	"error.invalid_currency":         "不支持的币种",
	"error.non_positive_amount":      "金额必须大于零",
	"error.invalid_amount":           "金额格式错误",
	"error.invalid_tx_type":          "交易类型无效",
	"error.invalid_scope":            "账本范围格式错误",
	"error.invalid_decision":         "审核动作无效",
	"error.duplicate_source":         "该来源操作已生成义务",
	"error.already_settled":          "该义务已处理，不能重复审核",
	"error.not_approved":             "义务未通过审核，无法结算",
	"error.ledger_rejected":          "账本拒绝了结算交易",
	"error.obligation_not_found":     "义务不存在",
	"error.affiliate_not_found":      "推广者不存在",
	"error.affiliate_exists":         "该用户已是推广者",
	"error.affiliate_code_exists":    "推广码已被占用",
	"error.invalid_rate":             "费率必须在 0 到 100 之间",
	"error.rate_backdated":           "费率生效日期不能早于今天",
	"error.rate_date_conflict":       "该生效日期已存在费率记录",
	"error.invalid_status":           "状态无效",
	"error.user_id_required":         "用户 ID 不能为空",
	"error.operation_id_required":    "来源操作 ID 不能为空",
	"error.token_revoked":            "登录状态已失效，请重新登录",
	"error.invalid_password":         "原密码错误",
	"error.password_weak":            "密码强度不足",
	"error.password_min_length":      "密码长度至少 %d 位",
	"error.password_require_upper":   "密码需包含大写字母",
	"error.password_require_lower":   "密码需包含小写字母",
	"error.password_require_number":  "密码需包含数字",
	"error.password_require_special": "密码需包含特殊字符",
}

var messagesTW = map[string]string{
	"error.bad_request":          "請求參數錯誤",
	"error.unauthorized":         "未登入或登入已過期",
	"error.forbidden":            "無權訪問",
	"error.not_found":            "資源不存在",
	"error.internal":             "服務內部錯誤",
	"error.invalid_credentials":  "使用者名稱或密碼錯誤",
	"error.invalid_currency":     "不支援的幣種",
	"error.non_positive_amount":  "金額必須大於零",
	"error.already_settled":      "該義務已處理，不能重複審核",
	"error.not_approved":         "義務未通過審核，無法結算",
	"error.resource_unavailable": "服務暫時不可用，請稍後重試",
}

var messagesEN = map[string]string{
	"error.bad_request":              "Bad request",
	"error.unauthorized":             "Not signed in or session expired",
	"error.forbidden":                "Forbidden",
	"error.not_found":                "Not found",
	"error.internal":                 "Internal error",
	"error.too_many_requests":        "Too many requests, try again later",
	"error.too_many_requests_retry":  "Too many requests, retry in %d seconds",
	"error.admin_id_invalid":         "Invalid admin id",
	"error.admin_id_type_invalid":    "Invalid admin id type",
	"error.invalid_credentials":      "Invalid username or password",
	"error.login_failed":             "Login failed",
	"error.admin_disabled":           "Admin account disabled",
	"error.captcha_required":         "Captcha is required",
	"error.captcha_invalid":          "Captcha is invalid or expired",
	"error.captcha_generate_failed":  "Failed to generate captcha",
	"error.authz_unavailable":        "Authorization service unavailable",
	"error.validation":               "Validation failed",
	"error.conflict":                 "Conflict",
	"error.policy":                   "Operation not allowed in current state",
	"error.resource_unavailable":     "Service temporarily unavailable, retry later",
	"error.invalid_currency":         "Unsupported currency",
	"error.non_positive_amount":      "Amount must be greater than zero",
	"error.invalid_amount":           "Invalid amount",
	"error.invalid_tx_type":          "Invalid transaction type",
	"error.invalid_scope":            "Invalid ledger scope",
	"error.invalid_decision":         "Invalid decision",
	"error.duplicate_source":         "An obligation already exists for this source operation",
	"error.already_settled":          "Obligation already decided",
	"error.not_approved":             "Obligation is not approved",
	"error.ledger_rejected":          "Ledger rejected the settlement",
	"error.obligation_not_found":     "Obligation not found",
	"error.affiliate_not_found":      "Affiliate not found",
	"error.affiliate_exists":         "User is already an affiliate",
	"error.affiliate_code_exists":    "Affiliate code already taken",
	"error.invalid_rate":             "Rate must be between 0 and 100",
	"error.rate_backdated":           "Rate effective date cannot be in the past",
	"error.rate_date_conflict":       "A rate already exists for this effective date",
	"error.invalid_status":           "Invalid status",
	"error.user_id_required":         "User id is required",
	"error.operation_id_required":    "Source operation id is required",
	"error.token_revoked":            "Session revoked, please sign in again",
	"error.invalid_password":         "Current password is incorrect",
	"error.password_weak":            "Password does not meet the policy",
	"error.password_min_length":      "Password must be at least %d characters",
	"error.password_require_upper":   "Password must contain an uppercase letter",
	"error.password_require_lower":   "Password must contain a lowercase letter",
	"error.password_require_number":  "Password must contain a digit",
	"error.password_require_special": "Password must contain a special character",
}
