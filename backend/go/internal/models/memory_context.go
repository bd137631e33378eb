package models

import "time"

// PersonalContext 是单个用户的私人记忆，只属于该用户本人。
// 空值（见 EmptyPersonalContext）既是注册时的初始值，也是记忆清除的重置目标。
type PersonalContext struct {
	Expressed   []string    `json:"expressed"`    // 用户表达过的事实与观点，按时间顺序
	SoloJourney SoloJourney `json:"solo_journey"` // 单人会话的历程
	NextSolo    *string     `json:"next_solo"`    // 下一次单人会话的跟进提示
}

// SoloJourney 记录用户单人会话的起点和最近的话题。
type SoloJourney struct {
	Started      *time.Time `json:"started"`
	RecentTopics []string   `json:"recent_topics"`
}

// EmptyPersonalContext 返回 PersonalContext 的空默认值：所有序列为空，所有标量为 null。
func EmptyPersonalContext() PersonalContext {
	return PersonalContext{
		Expressed: []string{},
		SoloJourney: SoloJourney{
			RecentTopics: []string{},
		},
	}
}

// SharedContext 是一对伴侣共同拥有的记忆。任何一方（或系统）的修改对双方都可见。
type SharedContext struct {
	Facts       CoupleFacts   `json:"facts"`
	Strengths   []string      `json:"strengths"`
	Journey     CoupleJourney `json:"journey"`
	Coaching    Coaching      `json:"coaching"`
	NextSession NextSession   `json:"next_session"`
}

// CoupleFacts 是关于这段关系的基本事实。
type CoupleFacts struct {
	TogetherSince *string  `json:"together_since"`
	MarriedSince  *string  `json:"married_since"`
	Children      []string `json:"children"`
	Work          *string  `json:"work"`
}

// CoupleJourney 记录伴侣双方在辅导中的历程。
type CoupleJourney struct {
	Started         *string  `json:"started"`
	InitialTopics   []string `json:"initial_topics"`
	Progress        []string `json:"progress"`
	RecurringIssues []string `json:"recurring_issues"`
	RecentSessions  []string `json:"recent_sessions"`
}

// Coaching 记录哪些辅导方式有效、哪些应当避免。
type Coaching struct {
	WhatWorks   []string `json:"what_works"`
	WhatToAvoid []string `json:"what_to_avoid"`
}

// NextSession 是下一次双人会话的准备信息。
type NextSession struct {
	FollowUp        *string  `json:"follow_up"`
	OpenAgreements  []string `json:"open_agreements"`
	SensitiveTopics []string `json:"sensitive_topics"`
}

// EmptySharedContext 返回 SharedContext 的空默认值。
func EmptySharedContext() SharedContext {
	return SharedContext{
		Facts: CoupleFacts{
			Children: []string{},
		},
		Strengths: []string{},
		Journey: CoupleJourney{
			InitialTopics:   []string{},
			Progress:        []string{},
			RecurringIssues: []string{},
			RecentSessions:  []string{},
		},
		Coaching: Coaching{
			WhatWorks:   []string{},
			WhatToAvoid: []string{},
		},
		NextSession: NextSession{
			OpenAgreements:  []string{},
			SensitiveTopics: []string{},
		},
	}
}
