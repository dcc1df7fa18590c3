// README: Chat flow: pending-state routing, intent classification, and replies.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"poring/internal/ai"
	"poring/internal/config"
	"poring/internal/modules/bike"
	"poring/internal/modules/hub"
	"poring/internal/modules/mission"
	"poring/internal/modules/rental"
)

// llmTimeout bounds every model call so a slow LLM cannot hold the request.
const llmTimeout = 10 * time.Second

type Service struct {
	store    *Store
	provider ai.Provider
	hubs     *hub.Service
	bikes    *bike.Store
	rentals  *rental.Service
	missions *mission.Service
	ops      config.OpsConfig
}

func NewService(store *Store, provider ai.Provider, hubs *hub.Service, bikes *bike.Store,
	rentals *rental.Service, missions *mission.Service, ops config.OpsConfig) *Service {
	return &Service{
		store:    store,
		provider: provider,
		hubs:     hubs,
		bikes:    bikes,
		rentals:  rentals,
		missions: missions,
		ops:      ops,
	}
}

// Handle runs one chat turn: charge a token, route through the pending state
// if one exists, otherwise classify the message from scratch.
func (s *Service) Handle(ctx context.Context, cmd Command) (*Reply, error) {
	if err := s.store.EnsureUser(ctx, cmd.UserID); err != nil {
		return nil, err
	}
	if err := s.store.UseToken(ctx, cmd.UserID); err != nil {
		return nil, err
	}
	if err := s.store.AppendHistory(ctx, cmd.UserID, "user", cmd.Message); err != nil {
		return nil, err
	}

	sess, err := s.store.LoadSession(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}

	var reply *Reply
	switch {
	case sess != nil && sess.State == StateAwaitRentConfirm:
		reply, err = s.onRentConfirm(ctx, cmd, sess)
	case sess != nil && sess.State == StateAwaitReturnType:
		reply, err = s.onReturnType(ctx, cmd, sess)
	case sess != nil && sess.State == StateAwaitMissionConfirm:
		reply, err = s.onMissionConfirm(ctx, cmd, sess)
	default:
		reply, err = s.onFreeMessage(ctx, cmd)
	}
	if err != nil {
		return nil, err
	}

	if err := s.store.AppendHistory(ctx, cmd.UserID, "assistant", reply.Text); err != nil {
		return nil, err
	}
	return reply, nil
}

func (s *Service) onRentConfirm(ctx context.Context, cmd Command, sess *Session) (*Reply, error) {
	ans, err := s.classifyYesNo(ctx, cmd.Message)
	if err != nil {
		return nil, err
	}
	switch ans {
	case ai.No:
		if err := s.store.ClearSession(ctx, cmd.UserID); err != nil {
			return nil, err
		}
		return s.reply(ctx, cmd.UserID, StateNone,
			"Tell the user the rental was cancelled and they can ask again any time.",
			nil, "Okay, I cancelled that. Ask me again whenever you like."), nil
	case ai.Unknown:
		return s.reply(ctx, cmd.UserID, StateAwaitRentConfirm,
			"Ask the user again, with a yes or no, whether they want the recommended bike.",
			sess, fmt.Sprintf("Should I rent bike %d at %s for you? Please answer yes or no.", sess.BikeID, sess.HubName)), nil
	}

	res, err := s.rentals.Start(ctx, rental.StartCommand{UserID: cmd.UserID, BikeID: sess.BikeID})
	if err != nil {
		if clearErr := s.store.ClearSession(ctx, cmd.UserID); clearErr != nil {
			return nil, clearErr
		}
		switch err {
		case rental.ErrRentalActive:
			return s.reply(ctx, cmd.UserID, StateNone,
				"Tell the user they already have an open rental and must return it first.",
				nil, "You already have a bike rented. Please return it before renting another."), nil
		case bike.ErrNotAvailable, hub.ErrSlotConflict:
			return s.reply(ctx, cmd.UserID, StateNone,
				"Apologize: the recommended bike was just taken. Invite them to ask again.",
				nil, "Sorry, that bike was just taken. Ask me again and I'll find another."), nil
		}
		return nil, err
	}

	if err := s.store.ClearSession(ctx, cmd.UserID); err != nil {
		return nil, err
	}

	// Low-battery bike sitting in the hub's zone: offer a relocation mission.
	if low, err := s.bikes.LowBatteryInZone(ctx, sess.HubID, s.ops.FullBatteryLevel); err == nil {
		if st, err := s.hubs.FreeStation(ctx, sess.HubID); err == nil {
			offer := &Session{
				State:   StateAwaitMissionConfirm,
				HubID:   sess.HubID,
				HubName: sess.HubName,
				Mission: &PendingMission{
					BikeID:          low.ID,
					TargetStationID: st.ID,
					Reward:          s.ops.LowBatteryReward,
				},
			}
			if err := s.store.SaveSession(ctx, cmd.UserID, offer); err != nil {
				return nil, err
			}
			fallback := fmt.Sprintf(
				"Your rental %s started. Bonus: bike %d in the %s zone is low on battery. Move it to station %d for %d points?",
				res.RentalCode, low.ID, sess.HubName, st.ID, s.ops.LowBatteryReward)
			return s.reply(ctx, cmd.UserID, StateAwaitMissionConfirm,
				"Confirm the rental started, then offer the low-battery relocation mission and ask yes or no.",
				map[string]any{"rental": res, "mission": offer.Mission}, fallback), nil
		}
	} else if err != bike.ErrNotFound {
		return nil, err
	}

	return s.reply(ctx, cmd.UserID, StateNone,
		"Confirm the rental started and wish them a good ride.",
		res, fmt.Sprintf("Done! Bike %d is yours, rental code %s. Enjoy the ride!", res.BikeID, res.RentalCode)), nil
}

func (s *Service) onReturnType(ctx context.Context, cmd Command, sess *Session) (*Reply, error) {
	lctx, cancel := context.WithTimeout(ctx, llmTimeout)
	defer cancel()
	ri, err := s.provider.ClassifyReturnIntent(lctx, cmd.Message)
	if err != nil {
		return nil, err
	}

	var kind hub.LocationKind
	switch ri.ReturnType {
	case ai.ReturnStation:
		kind = hub.KindStation
	case ai.ReturnZone:
		kind = hub.KindZone
	default:
		return s.reply(ctx, cmd.UserID, StateAwaitReturnType,
			"Ask again whether they want a station return or a zone return.",
			sess, "Would you like to return at a station or in the zone?"), nil
	}
	return s.closeRental(ctx, cmd.UserID, sess.HubID, sess.HubName, kind)
}

func (s *Service) onMissionConfirm(ctx context.Context, cmd Command, sess *Session) (*Reply, error) {
	ans, err := s.classifyYesNo(ctx, cmd.Message)
	if err != nil {
		return nil, err
	}
	switch ans {
	case ai.Unknown:
		return s.reply(ctx, cmd.UserID, StateAwaitMissionConfirm,
			"Ask again, yes or no, whether they take the relocation mission.",
			sess, "Do you want the relocation mission? Please answer yes or no."), nil
	case ai.No:
		if err := s.store.ClearSession(ctx, cmd.UserID); err != nil {
			return nil, err
		}
		return s.reply(ctx, cmd.UserID, StateNone,
			"Acknowledge they declined the mission, no pressure.",
			nil, "No problem, the mission is skipped. Enjoy your ride!"), nil
	}

	if err := s.store.ClearSession(ctx, cmd.UserID); err != nil {
		return nil, err
	}
	res, err := s.missions.Prepare(ctx, mission.PrepareCommand{
		UserID:          cmd.UserID,
		BikeID:          sess.Mission.BikeID,
		TargetStationID: sess.Mission.TargetStationID,
		Reward:          sess.Mission.Reward,
	})
	if err != nil {
		switch err {
		case mission.ErrMissionDuplicate, mission.ErrZoneSlotUnavailable, mission.ErrBikeNotInZone:
			return s.reply(ctx, cmd.UserID, StateNone,
				"Apologize: the mission bike is no longer available.",
				nil, "Sorry, that bike is no longer available for the mission."), nil
		}
		return nil, err
	}
	fallback := fmt.Sprintf(
		"Mission accepted! Move bike %d to station %d and you'll earn %d points.",
		sess.Mission.BikeID, sess.Mission.TargetStationID, sess.Mission.Reward)
	return s.reply(ctx, cmd.UserID, StateNone,
		"Confirm the mission is on and remind them of the target station and reward.",
		map[string]any{"mission_id": res.MissionID, "pending": sess.Mission}, fallback), nil
}

func (s *Service) onFreeMessage(ctx context.Context, cmd Command) (*Reply, error) {
	hubCtx, err := s.hubContext(ctx)
	if err != nil {
		return nil, err
	}

	lctx, cancel := context.WithTimeout(ctx, llmTimeout)
	ri, err := s.provider.ClassifyRentIntent(lctx, cmd.Message, hubCtx)
	cancel()
	if err != nil {
		return nil, err
	}
	if ri.IsRent {
		return s.onRentRequest(ctx, cmd, ri)
	}

	lctx, cancel = context.WithTimeout(ctx, llmTimeout)
	ret, err := s.provider.ClassifyReturnIntent(lctx, cmd.Message)
	cancel()
	if err != nil {
		return nil, err
	}
	if ret.IsReturn {
		return s.onReturnRequest(ctx, cmd, ret)
	}

	return s.reply(ctx, cmd.UserID, StateNone,
		"Answer briefly and steer the user toward renting or returning a bike.",
		map[string]string{"message": cmd.Message},
		"I can help you rent a bike or return one. What would you like to do?"), nil
}

func (s *Service) onRentRequest(ctx context.Context, cmd Command, ri *ai.RentIntent) (*Reply, error) {
	if ri.HubName == nil {
		names, err := s.hubNames(ctx)
		if err != nil {
			return nil, err
		}
		return s.reply(ctx, cmd.UserID, StateNone,
			"Ask which hub they want to rent at, listing the hubs.",
			map[string]any{"hubs": names},
			"Which hub would you like to rent at? We have: "+strings.Join(names, ", ")), nil
	}

	// Classifier output is untrusted: the hub name must exist in the DB.
	h, err := s.hubs.Get(ctx, *ri.HubName)
	if err != nil {
		if err == hub.ErrHubNotFound {
			return s.reply(ctx, cmd.UserID, StateNone,
				"Tell the user that hub is unknown and ask them to pick another.",
				map[string]string{"hub_name": *ri.HubName},
				fmt.Sprintf("I don't know a hub called %q. Could you pick another one?", *ri.HubName)), nil
		}
		return nil, err
	}

	candidates, err := s.bikes.AvailableByHub(ctx, h.ID)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return s.reply(ctx, cmd.UserID, StateNone,
			"Apologize that the hub has no rentable bikes right now.",
			map[string]string{"hub_name": h.Name},
			fmt.Sprintf("Sorry, there are no bikes available at %s right now.", h.Name)), nil
	}
	bike.SortForRental(candidates, s.ops.FullBatteryLevel)
	top := candidates[0]

	sess := &Session{State: StateAwaitRentConfirm, HubID: h.ID, HubName: h.Name, BikeID: top.ID}
	if err := s.store.SaveSession(ctx, cmd.UserID, sess); err != nil {
		return nil, err
	}
	fallback := fmt.Sprintf(
		"Best pick at %s: bike %d (battery %d%%). Shall I rent it for you?",
		h.Name, top.ID, top.BatteryLevel)
	return s.reply(ctx, cmd.UserID, StateAwaitRentConfirm,
		"Recommend the top bike at the hub and ask for a yes/no confirmation.",
		map[string]any{"hub_name": h.Name, "bike_id": top.ID, "battery": top.BatteryLevel}, fallback), nil
}

func (s *Service) onReturnRequest(ctx context.Context, cmd Command, ret *ai.ReturnIntent) (*Reply, error) {
	open, err := s.rentals.Open(ctx, cmd.UserID)
	if err != nil {
		if err == rental.ErrRentalNotFound {
			return s.reply(ctx, cmd.UserID, StateNone,
				"Tell the user they have no open rental to return.",
				nil, "You don't have an open rental right now."), nil
		}
		return nil, err
	}

	// Return at the named hub; without one, default to where the ride started.
	var h *hub.Hub
	if ret.HubName != nil {
		h, err = s.hubs.Get(ctx, *ret.HubName)
		if err != nil {
			if err == hub.ErrHubNotFound {
				return s.reply(ctx, cmd.UserID, StateNone,
					"Tell the user that hub is unknown and ask where they want to return.",
					map[string]string{"hub_name": *ret.HubName},
					fmt.Sprintf("I don't know a hub called %q. Where would you like to return?", *ret.HubName)), nil
			}
			return nil, err
		}
	} else {
		h, err = s.hubs.GetByID(ctx, open.StartHubID)
		if err != nil {
			return nil, err
		}
	}

	switch ret.ReturnType {
	case ai.ReturnStation:
		return s.closeRental(ctx, cmd.UserID, h.ID, h.Name, hub.KindStation)
	case ai.ReturnZone:
		return s.closeRental(ctx, cmd.UserID, h.ID, h.Name, hub.KindZone)
	}

	sess := &Session{State: StateAwaitReturnType, HubID: h.ID, HubName: h.Name}
	if err := s.store.SaveSession(ctx, cmd.UserID, sess); err != nil {
		return nil, err
	}
	return s.reply(ctx, cmd.UserID, StateAwaitReturnType,
		"Ask whether they want a station return or a zone return at the hub.",
		map[string]string{"hub_name": h.Name},
		fmt.Sprintf("Returning at %s. Station or zone?", h.Name)), nil
}

func (s *Service) closeRental(ctx context.Context, userID, hubID int64, hubName string, kind hub.LocationKind) (*Reply, error) {
	if err := s.store.ClearSession(ctx, userID); err != nil {
		return nil, err
	}

	res, err := s.rentals.Close(ctx, rental.CloseCommand{UserID: userID, HubID: hubID, Kind: kind})
	if err != nil {
		switch err {
		case rental.ErrStationReturnRequired:
			return s.reply(ctx, userID, StateNone,
				"Explain that station docks are still free, so the bike must go to a station.",
				map[string]string{"hub_name": hubName},
				fmt.Sprintf("There are still free docks at %s, so please return the bike at a station.", hubName)), nil
		case hub.ErrStationFull:
			return s.reply(ctx, userID, StateNone,
				"Explain that every dock is taken and suggest a zone return instead.",
				map[string]string{"hub_name": hubName},
				fmt.Sprintf("All docks at %s are taken. Would you like to return in the zone instead?", hubName)), nil
		case rental.ErrRentalNotFound:
			return s.reply(ctx, userID, StateNone,
				"Tell the user they have no open rental to return.",
				nil, "You don't have an open rental right now."), nil
		}
		return nil, err
	}

	fallback := fmt.Sprintf(
		"Returned at %s. You rode %d minutes, charged %d %s. See you next time!",
		res.EndHubName, res.DurationMinutes, res.Final.Amount, res.Final.Currency)
	return s.reply(ctx, userID, StateNone,
		"Read back the return receipt: hub, duration, and final charge.",
		res, fallback), nil
}

func (s *Service) classifyYesNo(ctx context.Context, message string) (ai.YesNo, error) {
	lctx, cancel := context.WithTimeout(ctx, llmTimeout)
	defer cancel()
	return s.provider.ClassifyYesNo(lctx, message)
}

// reply renders the user-facing sentence through the LLM and falls back to the
// deterministic text when generation fails or times out.
func (s *Service) reply(ctx context.Context, userID int64, state State, instruction string, payload any, fallback string) *Reply {
	history, err := s.store.History(ctx, userID)
	if err != nil {
		return &Reply{Text: fallback, State: state}
	}

	lctx, cancel := context.WithTimeout(ctx, llmTimeout)
	defer cancel()
	text, err := s.provider.GenerateSentence(lctx, instruction, payload, history)
	if err != nil || text == "" {
		return &Reply{Text: fallback, State: state}
	}
	return &Reply{Text: text, State: state}
}

func (s *Service) hubContext(ctx context.Context) (string, error) {
	overviews, err := s.hubs.Overview(ctx)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, o := range overviews {
		fmt.Fprintf(&b, "- %s\n", o.Name)
	}
	return b.String(), nil
}

func (s *Service) hubNames(ctx context.Context) ([]string, error) {
	overviews, err := s.hubs.Overview(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(overviews))
	for _, o := range overviews {
		names = append(names, o.Name)
	}
	return names, nil
}
